// Package calendar answers whether the NSE derivatives market is open.
package calendar

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/nsvirk/nsequotes/internal/config"
)

// HolidayLayout is the date format used in the holiday file
const HolidayLayout = "02-Jan-2006"

// Trading session bounds, both inclusive
var (
	OpenTime  = 9*time.Hour + 15*time.Minute
	CloseTime = 15*time.Hour + 29*time.Minute
)

// Calendar is a read-only view of trading hours and holidays
type Calendar struct {
	loc      *time.Location
	holidays map[civilDate]struct{}
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// New creates a calendar for the given location and holiday dates
func New(loc *time.Location, holidays []time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{
		loc:      loc,
		holidays: make(map[civilDate]struct{}, len(holidays)),
	}
	for _, h := range holidays {
		c.holidays[dateOf(h)] = struct{}{}
	}
	return c
}

// Location returns the market timezone
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsHoliday reports whether the local calendar date of t is a listed holiday
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[dateOf(t.In(c.loc))]
	return ok
}

// IsOpen reports whether the market is open at now
func (c *Calendar) IsOpen(now time.Time) bool {
	local := now.In(c.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, c.loc)
	sinceMidnight := local.Sub(midnight)
	if sinceMidnight < OpenTime || sinceMidnight > CloseTime {
		return false
	}

	return !c.IsHoliday(local)
}

// LoadHolidays reads a holiday file with lines of the form `<note># DD-Mon-YYYY`
func LoadHolidays(path string) ([]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open holiday list: %v", config.ErrConfig, err)
	}
	defer f.Close()

	var holidays []time.Time
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		h, err := ParseHolidayLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", config.ErrConfig, path, lineNo, err)
		}
		holidays = append(holidays, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read holiday list %s: %v", config.ErrConfig, path, err)
	}
	return holidays, nil
}

// ParseHolidayLine extracts the date after the first '#'
func ParseHolidayLine(line string) (time.Time, error) {
	parts := strings.Split(line, "#")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("missing '#' separator in %q", line)
	}
	h, err := time.Parse(HolidayLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid holiday date in %q: %v", line, err)
	}
	return h, nil
}
