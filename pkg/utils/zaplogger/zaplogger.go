// Package zaplogger wraps a process-wide zap logger
package zaplogger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

var log *zap.Logger
var zapConfig zap.Config

// Fields type, used to pass to `WithFields`.
type Fields map[string]interface{}

// LogsTableName is the table the database sink writes to
var LogsTableName = "_collector_logs"

// LogModel represents the structure of the log entry in the database
type LogModel struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Level     string    `gorm:"index"`
	Caller    string
	Message   string
	Fields    string // JSON string of additional fields
}

// TableName specifies the table name for LogModel
func (LogModel) TableName() string {
	return LogsTableName
}

// DbWriter implements zapcore.WriteSyncer interface for database logging using GORM
type DbWriter struct {
	db *gorm.DB
}

// LogData represents the structure of the JSON log data
type LogData struct {
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
	Caller    string `json:"caller"`
	Message   string `json:"message"`
}

func (w *DbWriter) Write(p []byte) (n int, err error) {
	var logData LogData
	if err = json.Unmarshal(p, &logData); err != nil {
		return 0, err
	}

	var rawMessage map[string]json.RawMessage
	if err = json.Unmarshal(p, &rawMessage); err != nil {
		return 0, err
	}

	additionalFields := make(map[string]json.RawMessage)
	for k, v := range rawMessage {
		switch k {
		case "level", "timestamp", "caller", "message":
		default:
			additionalFields[k] = v
		}
	}

	fieldsJSON, err := json.Marshal(additionalFields)
	if err != nil {
		return 0, err
	}

	timestamp, err := time.Parse(timeLayout, logData.Timestamp)
	if err != nil {
		return 0, err
	}

	logRecord := LogModel{
		Timestamp: timestamp,
		Level:     logData.Level,
		Caller:    logData.Caller,
		Message:   logData.Message,
		Fields:    string(fieldsJSON),
	}

	if err := w.db.Create(&logRecord).Error; err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *DbWriter) Sync() error {
	return nil
}

const timeLayout = "2006-01-02T15:04:05.999-0700"

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(timeLayout))
}

func init() {
	zapConfig = zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.DebugLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "message",
			LevelKey:     "level",
			TimeKey:      "timestamp",
			CallerKey:    "caller",
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			EncodeTime:   customTimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}

	var err error
	log, err = zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
}

// InitLogger tees the console logger into the database log table
func InitLogger(db *gorm.DB) error {
	if err := db.AutoMigrate(&LogModel{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	dbWriter := &DbWriter{db: db}

	consoleEncoder := zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
	dbEncoder := zapcore.NewJSONEncoder(zapConfig.EncoderConfig)

	// database sink only takes info and above
	dbLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return zapConfig.Level.Enabled(l) && l >= zapcore.InfoLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapConfig.Level),
		zapcore.NewCore(dbEncoder, zapcore.AddSync(dbWriter), dbLevel),
	)

	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// ParseLevel maps a config string onto a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) {
	zapConfig.Level.SetLevel(ParseLevel(level))
}

// Level returns the current logging level
func Level() zapcore.Level {
	return zapConfig.Level.Level()
}

// Info logs an info message
func Info(msg string, fields ...Fields) {
	if len(fields) > 0 {
		log.Info(msg, getZapFields(fields[0])...)
	} else {
		log.Info(msg)
	}
}

// Debug logs a debug message
func Debug(msg string, fields ...Fields) {
	if len(fields) > 0 {
		log.Debug(msg, getZapFields(fields[0])...)
	} else {
		log.Debug(msg)
	}
}

// Warn logs a warning message
func Warn(msg string, fields ...Fields) {
	if len(fields) > 0 {
		log.Warn(msg, getZapFields(fields[0])...)
	} else {
		log.Warn(msg)
	}
}

// Error logs an error message
func Error(msg string, fields ...Fields) {
	if len(fields) > 0 {
		log.Error(msg, getZapFields(fields[0])...)
	} else {
		log.Error(msg)
	}
}

// TimeTrack logs the time taken for a function to execute
func TimeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	Info(name+" took "+elapsed.String(), Fields{"duration": elapsed})
}

// getZapFields converts our Fields type to zap.Field slice
func getZapFields(fields Fields) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			zapFields = append(zapFields, zap.NamedError(k, err))
			continue
		}
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return zapFields
}

// Sync flushes any buffered log entries
func Sync() error {
	return log.Sync()
}
