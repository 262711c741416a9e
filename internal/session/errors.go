package session

import "fmt"

// SessionError represents a session state error
type SessionError struct {
	Code    string
	Message string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Logger interface for logging abstraction
type Logger interface {
	Printf(format string, v ...interface{})
}
