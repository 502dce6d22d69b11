package internal

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// GetLogger hands out the process-wide logrus logger. Packages grab it at init,
// before config is read, so it starts at warn and config.SetLogLevel raises it
// later.
func GetLogger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = &logrus.Logger{
			Out:   os.Stderr,
			Hooks: make(logrus.LevelHooks),
			Level: logrus.WarnLevel,
			Formatter: &logrus.TextFormatter{
				FullTimestamp: true,
				PadLevelText:  true,
			},
		}
	})
	return logger
}

func SetLogLevel(level logrus.Level) {
	GetLogger().SetLevel(level)
}

// LeveledLogger is the logging surface go-retryablehttp accepts: a message
// plus alternating key/value pairs.
type LeveledLogger interface {
	Error(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

var _ LeveledLogger = (*LeveledLogrus)(nil)

// LeveledLogrus routes retry and request logs from the embedding, LLM and
// rerank clients into the shared logger as structured fields.
type LeveledLogrus struct {
	*logrus.Logger
}

func NewLeveledLogrus(logger *logrus.Logger) *LeveledLogrus {
	return &LeveledLogrus{Logger: logger}
}

// entry pairs up keysAndValues. Non-string keys and a trailing odd value are
// dropped.
func (l *LeveledLogrus) entry(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.WithFields(fields)
}

func (l *LeveledLogrus) Error(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Error(msg)
}

func (l *LeveledLogrus) Warn(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Warn(msg)
}

func (l *LeveledLogrus) Info(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Info(msg)
}

func (l *LeveledLogrus) Debug(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}
