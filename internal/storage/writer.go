// Package storage persists parsed quote documents as per-contract CSV time series.
//
// Layout under the data directory:
//
//	{symbol}/{YYYY-MM-DD}/{HHMMSS.ffffff}   raw document, verbatim
//	{symbol}/{expiry}/{identifier}          CSV header + one row per cycle
//
// Appends to one file are not locked. Callers must not write the same symbol
// from two goroutines at once; the collector guarantees this by finishing a
// cycle before starting the next.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/nsvirk/nsequotes/internal/models"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
)

const (
	archiveDateLayout = "2006-01-02"
	archiveTimeLayout = "150405.000000"

	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrUnsafePath is returned when a symbol, expiry or identifier cannot be used
// as a single path segment under the data directory
var ErrUnsafePath = errors.New("unsafe path segment")

// PersistenceError is a failed filesystem write for one target path
type PersistenceError struct {
	Symbol string
	Path   string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s to %s: %v", e.Symbol, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Config holds writer settings
type Config struct {
	DataDir  string
	Location *time.Location
	Now      func() time.Time
}

// WriteResult summarises one Write call
type WriteResult struct {
	ArchivePath string
	Written     int
	Failed      int
	Skipped     int
}

// Writer appends contract observations to their time series files
type Writer struct {
	dataDir string
	loc     *time.Location
	now     func() time.Time
}

// NewWriter creates a new Writer
func NewWriter(cfg Config) *Writer {
	w := &Writer{
		dataDir: cfg.DataDir,
		loc:     cfg.Location,
		now:     cfg.Now,
	}
	if w.loc == nil {
		w.loc = time.UTC
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// DataDir returns the root directory
func (w *Writer) DataDir() string {
	return w.dataDir
}

// ContractPath returns the time series file for a contract. Every part must
// be a plain path segment so the file stays under the data directory.
func (w *Writer) ContractPath(symbol, expiry, identifier string) (string, error) {
	for _, segment := range []string{symbol, expiry, identifier} {
		if err := checkSegment(segment); err != nil {
			return "", err
		}
	}
	return filepath.Join(w.dataDir, symbol, expiry, identifier), nil
}

func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, s)
	}
	return nil
}

// ArchivePath returns the raw archive file for an observation time
func (w *Writer) ArchivePath(symbol string, at time.Time) string {
	local := at.In(w.loc)
	return filepath.Join(w.dataDir, symbol, local.Format(archiveDateLayout), local.Format(archiveTimeLayout))
}

// Write archives the raw document and appends one row per persistable contract.
// Failures are logged and collected; every target is attempted.
func (w *Writer) Write(symbol string, raw []byte, doc *models.QuoteDocument) (WriteResult, error) {
	var result WriteResult
	var errs []error

	if err := checkSegment(symbol); err != nil {
		zaplogger.Error("refusing to write quote", zaplogger.Fields{
			"symbol": symbol,
			"error":  err,
		})
		return result, &PersistenceError{Symbol: symbol, Path: w.dataDir, Err: err}
	}

	archivePath := w.ArchivePath(symbol, w.now())
	if err := w.archive(archivePath, raw); err != nil {
		perr := &PersistenceError{Symbol: symbol, Path: archivePath, Err: err}
		zaplogger.Error("failed to archive raw quote", zaplogger.Fields{
			"symbol": symbol,
			"path":   archivePath,
			"error":  err,
		})
		errs = append(errs, perr)
	} else {
		result.ArchivePath = archivePath
	}

	for _, expiry := range doc.ExpiryDates {
		for _, optionType := range []string{models.OptionTypeCall, models.OptionTypePut} {
			for _, c := range doc.ContractsForExpiry(expiry, optionType) {
				if !c.Persistable() {
					result.Skipped++
					continue
				}
				path, err := w.ContractPath(symbol, c.Metadata.ExpiryDate, c.Metadata.Identifier)
				if err == nil {
					err = w.appendRow(path, models.NewContractRow(doc.OptTimestamp, c))
				}
				if err != nil {
					zaplogger.Error("failed to append contract row", zaplogger.Fields{
						"symbol":     symbol,
						"identifier": c.Metadata.Identifier,
						"expiry":     c.Metadata.ExpiryDate,
						"strike":     c.Metadata.StrikePrice.String(),
						"optionType": c.Metadata.OptionType,
						"path":       path,
						"error":      err,
					})
					errs = append(errs, &PersistenceError{Symbol: symbol, Path: path, Err: err})
					result.Failed++
					continue
				}
				result.Written++
			}
		}
	}

	// contracts that are neither calls nor puts never reach the loops above
	for _, c := range doc.Contracts {
		if !c.IsCall() && !c.IsPut() {
			result.Skipped++
		}
	}

	return result, errors.Join(errs...)
}

func (w *Writer) archive(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	return os.WriteFile(path, raw, filePerm)
}

// appendRow writes the header when it creates the file, then the row. The
// encoded bytes go out in a single write on an O_APPEND handle. A file this
// call created is removed again if the write fails, so a later cycle never
// finds a contract file without its header.
func (w *Writer) appendRow(path string, row models.ContractRow) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}

	rows := []models.ContractRow{row}
	var buf bytes.Buffer

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, filePerm)
	created := err == nil
	switch {
	case created:
		if err := gocsv.Marshal(rows, &buf); err != nil {
			f.Close()
			return discard(path, err)
		}
	case errors.Is(err, fs.ErrExist):
		// existing path is trusted to already carry the header
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, filePerm)
		if err != nil {
			return err
		}
		if err := gocsv.MarshalWithoutHeaders(rows, &buf); err != nil {
			f.Close()
			return err
		}
	default:
		return err
	}

	_, err = f.Write(buf.Bytes())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil && created {
		return discard(path, err)
	}
	return err
}

// discard removes a contract file left incomplete by a failed first write
func discard(path string, cause error) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(cause, fmt.Errorf("failed to remove incomplete file: %w", err))
	}
	return cause
}
