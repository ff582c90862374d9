package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nsvirk/nsequotes/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestCalendar_IsOpen(t *testing.T) {
	loc := ist(t)
	republicDay := time.Date(2024, time.January, 26, 0, 0, 0, 0, time.UTC)
	cal := New(loc, []time.Time{republicDay})

	at := func(y int, m time.Month, d, hh, mm, ss, ns int) time.Time {
		return time.Date(y, m, d, hh, mm, ss, ns, loc)
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"weekday mid session", at(2024, time.January, 25, 11, 0, 0, 0), true},
		{"exact open", at(2024, time.January, 25, 9, 15, 0, 0), true},
		{"exact close", at(2024, time.January, 25, 15, 29, 0, 0), true},
		{"one second before open", at(2024, time.January, 25, 9, 14, 59, 0), false},
		{"just after close", at(2024, time.January, 25, 15, 29, 0, 1000), false},
		{"late evening", at(2024, time.January, 25, 20, 0, 0, 0), false},
		{"saturday mid session", at(2024, time.January, 27, 11, 0, 0, 0), false},
		{"sunday mid session", at(2024, time.January, 28, 11, 0, 0, 0), false},
		{"sunday exact open", at(2024, time.January, 28, 9, 15, 0, 0), false},
		{"holiday at ten", at(2024, time.January, 26, 10, 0, 0, 0), false},
		{"utc instant inside IST session", time.Date(2024, time.January, 25, 4, 0, 0, 0, time.UTC), true},
		{"utc instant before IST open", time.Date(2024, time.January, 25, 3, 44, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsOpen(tt.now))
		})
	}
}

func TestCalendar_WeekendsAlwaysClosed(t *testing.T) {
	loc := ist(t)
	cal := New(loc, nil)
	saturday := time.Date(2024, time.March, 2, 0, 0, 0, 0, loc)

	for minute := 0; minute < 2*24*60; minute += 7 {
		now := saturday.Add(time.Duration(minute) * time.Minute)
		assert.False(t, cal.IsOpen(now), "open at %s", now)
	}
}

func TestParseHolidayLine(t *testing.T) {
	h, err := ParseHolidayLine("Republic Day# 26-Jan-2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 26, 0, 0, 0, 0, time.UTC), h)

	_, err = ParseHolidayLine("26-Jan-2024")
	assert.Error(t, err)

	_, err = ParseHolidayLine("Holi# 2024-03-25")
	assert.Error(t, err)
}

func TestLoadHolidays(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "holidays.txt")
	require.NoError(t, os.WriteFile(good, []byte("Republic Day# 26-Jan-2024\n\nHoli#25-Mar-2024\n"), 0o644))

	holidays, err := LoadHolidays(good)
	require.NoError(t, err)
	require.Len(t, holidays, 2)

	cal := New(ist(t), holidays)
	assert.True(t, cal.IsHoliday(time.Date(2024, time.March, 25, 12, 0, 0, 0, cal.Location())))

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("Republic Day# 26-Jan-2024\nnot a holiday line\n"), 0o644))

	_, err = LoadHolidays(bad)
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = LoadHolidays(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, config.ErrConfig)
}
