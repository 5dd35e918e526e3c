package log

import (
	"errors"
	"strings"
)

// ErrEntryDropped is returned by a hook to suppress an entry.
var ErrEntryDropped = errors.New("log entry dropped")

var allLevels = []Level{DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel}

// DefaultRedactedFields are masked unless the configuration says otherwise.
var DefaultRedactedFields = []string{"token", "password", "totp", "authorization"}

// RedactionHook masks credential-bearing fields. Matching is case-insensitive.
type RedactionHook struct {
	fields map[string]struct{}
}

// NewRedactionHook creates a new redaction hook.
func NewRedactionHook(fields []string) *RedactionHook {
	h := &RedactionHook{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		h.fields[strings.ToLower(f)] = struct{}{}
	}
	return h
}

// Levels returns every level.
func (h *RedactionHook) Levels() []Level {
	return allLevels
}

// Fire replaces values of redacted fields.
func (h *RedactionHook) Fire(entry *Entry) error {
	for k := range entry.Fields {
		if _, ok := h.fields[strings.ToLower(k)]; ok {
			entry.Fields[k] = "[REDACTED]"
		}
	}
	return nil
}

// ComponentFilterHook drops debug entries from components that were not
// explicitly enabled. An empty allow list lets everything through.
type ComponentFilterHook struct {
	allow map[string]struct{}
}

// NewComponentFilterHook creates a hook that keeps debug output only for the
// named components.
func NewComponentFilterHook(components []string) *ComponentFilterHook {
	h := &ComponentFilterHook{allow: make(map[string]struct{}, len(components))}
	for _, c := range components {
		h.allow[c] = struct{}{}
	}
	return h
}

// Levels returns the debug level only.
func (h *ComponentFilterHook) Levels() []Level {
	return []Level{DebugLevel}
}

// Fire drops the entry if its component is not allowed.
func (h *ComponentFilterHook) Fire(entry *Entry) error {
	if len(h.allow) == 0 {
		return nil
	}
	c, _ := entry.Fields[ComponentKey].(string)
	if _, ok := h.allow[c]; !ok {
		return ErrEntryDropped
	}
	return nil
}
