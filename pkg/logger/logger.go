package logger

// LoggerInstance is a logging backend. The facade fans every call out to all
// configured backends so that, e.g., a console logger and a shipping backend
// can run side by side.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

type level int

const (
	levelLog level = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var singleton *Logger

// Logger dispatches log calls to one or more backends.
type Logger struct {
	instances []LoggerInstance
}

// Init configures the global logger. It must be called before any logging
// function; calls made before Init are dropped.
func Init(instances ...LoggerInstance) {
	singleton = &Logger{instances: instances}
}

func dispatch(lvl level, message string, keyvals ...any) {
	if singleton == nil {
		return
	}
	for _, instance := range singleton.instances {
		switch lvl {
		case levelLog:
			instance.Log(message, keyvals...)
		case levelDebug:
			instance.Debug(message, keyvals...)
		case levelInfo:
			instance.Info(message, keyvals...)
		case levelWarn:
			instance.Warn(message, keyvals...)
		case levelError:
			instance.Error(message, keyvals...)
		case levelFatal:
			instance.Fatal(message, keyvals...)
		}
	}
}

// Log writes a message at the default level.
func Log(message string, keyvals ...any) { dispatch(levelLog, message, keyvals...) }

// Debug writes a message at DEBUG level.
func Debug(message string, keyvals ...any) { dispatch(levelDebug, message, keyvals...) }

// Info writes a message at INFO level.
func Info(message string, keyvals ...any) { dispatch(levelInfo, message, keyvals...) }

// Warn writes a message at WARN level.
func Warn(message string, keyvals ...any) { dispatch(levelWarn, message, keyvals...) }

// Error writes a message at ERROR level.
func Error(message string, keyvals ...any) { dispatch(levelError, message, keyvals...) }

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) { dispatch(levelFatal, message, keyvals...) }
