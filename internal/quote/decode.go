package quote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	errMissing        = errors.New("missing")
	errExpectedObject = errors.New("expected object")
	errExpectedArray  = errors.New("expected array")
	errExpectedString = errors.New("expected string")
	errNotInteger     = errors.New("expected integer")
)

// FieldError locates a decoding failure inside the document
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// object decodes fields of one JSON object. The first failure anywhere in a
// tree of objects sharing err is kept; later accessors become no-ops.
type object struct {
	path   string
	fields map[string]json.RawMessage
	err    *error
}

func newObject(path string, raw json.RawMessage, errp *error) *object {
	o := &object{path: path, err: errp}
	if *errp != nil {
		return o
	}
	if isNull(raw) {
		*errp = &FieldError{Path: path, Err: errMissing}
		return o
	}
	if err := json.Unmarshal(raw, &o.fields); err != nil {
		*errp = &FieldError{Path: path, Err: errExpectedObject}
	}
	return o
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (o *object) failed() bool {
	return *o.err != nil
}

func (o *object) fail(name string, err error) {
	if *o.err == nil {
		*o.err = &FieldError{Path: o.path + "." + name, Err: err}
	}
}

func (o *object) has(name string) bool {
	raw, ok := o.fields[name]
	return ok && !isNull(raw)
}

func (o *object) field(name string) (json.RawMessage, bool) {
	if o.failed() {
		return nil, false
	}
	raw, ok := o.fields[name]
	if !ok || isNull(raw) {
		o.fail(name, errMissing)
		return nil, false
	}
	return raw, true
}

func (o *object) object(name string) *object {
	raw, ok := o.field(name)
	if !ok {
		return &object{path: o.path + "." + name, err: o.err}
	}
	return newObject(o.path+"."+name, raw, o.err)
}

func (o *object) array(name string) []json.RawMessage {
	raw, ok := o.field(name)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		o.fail(name, errExpectedArray)
		return nil
	}
	return items
}

func (o *object) str(name string) string {
	raw, ok := o.field(name)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		o.fail(name, errExpectedString)
		return ""
	}
	return s
}

func (o *object) decimal(name string) decimal.Decimal {
	raw, ok := o.field(name)
	if !ok {
		return decimal.Zero
	}
	d, err := parseDecimal(raw)
	if err != nil {
		o.fail(name, err)
		return decimal.Zero
	}
	return d
}

func (o *object) integer(name string) int64 {
	d := o.decimal(name)
	if o.failed() {
		return 0
	}
	if !d.IsInteger() {
		o.fail(name, fmt.Errorf("%w, got %s", errNotInteger, d.String()))
		return 0
	}
	return d.IntPart()
}

// parseDecimal accepts a JSON number or a quoted numeric string
func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	if isNull(raw) {
		return decimal.Zero, errMissing
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
