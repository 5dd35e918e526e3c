package log

import (
	"time"
)

// Field is a structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a log field with the provided key and value
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Str creates a string field
func Str(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Strs creates a string slice field
func Strs(key string, value []string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Time creates a time field
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Any is an alias for F.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Component tags an entry with the emitting component.
func Component(value string) Field {
	return Field{Key: ComponentKey, Value: value}
}

// AppID tags an entry with an application id.
func AppID(value string) Field {
	return Field{Key: AppIDKey, Value: value}
}
