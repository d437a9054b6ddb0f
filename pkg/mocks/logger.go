package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/rawkit/pkg/ports"
)

// Entry is one message recorded by Logger.
type Entry struct {
	Level     ports.LogLevel
	Component string
	Message   string
}

// Logger is a ports.Logger that records formatted, untranslated messages.
type Logger struct {
	mu        *sync.Mutex
	entries   *[]Entry
	component string
}

// NewLogger creates an empty recording logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.add(ports.LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.add(ports.LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.add(ports.LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.add(ports.LevelError, msg, args) }

// WithComponent returns a logger sharing the same record.
func (l *Logger) WithComponent(component string) ports.Logger {
	c := *l
	if l.component != "" {
		component = l.component + "/" + component
	}
	c.component = component
	return &c
}

func (l *Logger) add(level ports.LogLevel, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, Entry{Level: level, Component: l.component, Message: fmt.Sprintf(msg, args...)})
}

// Entries returns a copy of the recorded messages.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), (*l.entries)...)
}

// Contains reports whether any message at level contains substr.
func (l *Logger) Contains(level ports.LogLevel, substr string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

var _ ports.Logger = (*Logger)(nil)
