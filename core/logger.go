package core

// Logger is implemented by every logging service.
// args may hold errors and map[string]interface{} extras; they are reported along with msg.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
