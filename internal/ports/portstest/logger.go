package portstest

import (
	"sync"

	"github.com/bft-labs/mongoship/internal/ports"
)

// LogEntry is one message captured by Logger.
type LogEntry struct {
	Level   string
	Message string
	Fields  []ports.Field
}

// Logger is a ports.Logger that keeps every message in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *Logger) Debug(msg string, fields ...ports.Field) { l.add("debug", msg, fields) }
func (l *Logger) Info(msg string, fields ...ports.Field)  { l.add("info", msg, fields) }
func (l *Logger) Warn(msg string, fields ...ports.Field)  { l.add("warn", msg, fields) }
func (l *Logger) Error(msg string, fields ...ports.Field) { l.add("error", msg, fields) }

func (l *Logger) add(level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// Entries returns the captured messages of one level, or all of them when
// level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
