package zaplogger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := Level()
	t.Cleanup(func() { zapConfig.Level.SetLevel(prev) })

	SetLogLevel("warn")
	assert.Equal(t, zapcore.WarnLevel, Level())
	SetLogLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, Level())
}

func TestInitLogger_WritesToDatabase(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "logs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	prevLog, prevLevel := log, Level()
	t.Cleanup(func() {
		log = prevLog
		zapConfig.Level.SetLevel(prevLevel)
	})

	require.NoError(t, InitLogger(db))
	SetLogLevel("debug")

	Debug("debug stays on the console", Fields{"symbol": "SBIN"})
	Info("cycle completed", Fields{"symbol": "SBIN", "rows": 2})
	Error("failed to fetch quote", Fields{"error": errors.New("connection reset")})

	var rows []LogModel
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)

	assert.Equal(t, "INFO", rows[0].Level)
	assert.Equal(t, "cycle completed", rows[0].Message)
	assert.JSONEq(t, `{"symbol":"SBIN","rows":2}`, rows[0].Fields)
	assert.False(t, rows[0].Timestamp.IsZero())

	assert.Equal(t, "ERROR", rows[1].Level)
	assert.JSONEq(t, `{"error":"connection reset"}`, rows[1].Fields)
}
