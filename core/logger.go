package core

// Logger is implemented by the app loggers (see services/logger).
// args may carry an error, extra fields (map[string]interface{}) and the calling user (core.Caller).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Caller identifies the authenticated user behind a request.
type Caller struct {
	ID    string
	Email string
}

func (c Caller) IsZero() bool { return c.ID == "" }
