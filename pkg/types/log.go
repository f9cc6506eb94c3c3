package types

// LogLevel is the severity of a console log entry.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
	LogDebug   LogLevel = "debug"
	LogEvent   LogLevel = "event"
)

// LogSource identifies who produced a console log entry.
type LogSource string

const (
	SourceUser   LogSource = "user"
	SourceAgent  LogSource = "agent"
	SourceSystem LogSource = "system"
)

// LogEntry is one row of the console log ring buffer.
type LogEntry struct {
	ID        uint64    `json:"id"`
	Timestamp int64     `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Source    LogSource `json:"source"`
	Category  string    `json:"category,omitempty"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
}
