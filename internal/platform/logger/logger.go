package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a key/value logger over zap's sugared API.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger. mode is "prod" for JSON output or anything else for
// the console encoder. When path is non-empty, output goes to that file
// instead of stderr so the terminal UI is left alone.
func New(mode, path string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger.New: %w", err)
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

func sanitizeKVs(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := strings.ToLower(strings.TrimSpace(fmt.Sprint(kv[i])))
		val := kv[i+1]
		if isRedactKey(key) {
			val = "[REDACTED]"
		} else if key == "recipient" || key == "to" {
			val = maskAddress(fmt.Sprint(val))
		}
		out = append(out, kv[i], val)
	}
	return out
}

func isRedactKey(key string) bool {
	switch {
	case strings.Contains(key, "token"),
		strings.Contains(key, "authorization"),
		strings.Contains(key, "password"),
		strings.Contains(key, "secret"),
		strings.Contains(key, "api_key"),
		strings.Contains(key, "apikey"):
		return true
	default:
		return false
	}
}

// maskAddress keeps the first rune of the local part and the domain.
func maskAddress(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return addr
	}
	return addr[:1] + "***" + addr[at:]
}
