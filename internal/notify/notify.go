// Package notify collects user-facing notices raised while handling one request.
package notify

import (
	"fmt"
	"sync"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices
type Notifier interface {
	Notify(level Level, message string)
}

// Collector is a Notifier that keeps notices in order
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Notify(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, Notice{Level: level, Message: message})
}

// Notices returns a copy of everything collected so far
func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// HasLevel reports whether any notice of the given level was raised
func (c *Collector) HasLevel(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.notices {
		if n.Level == level {
			return true
		}
	}
	return false
}

func Info(n Notifier, format string, args ...interface{}) {
	n.Notify(LevelInfo, fmt.Sprintf(format, args...))
}

func Success(n Notifier, format string, args ...interface{}) {
	n.Notify(LevelSuccess, fmt.Sprintf(format, args...))
}

func Warning(n Notifier, format string, args ...interface{}) {
	n.Notify(LevelWarning, fmt.Sprintf(format, args...))
}

func Error(n Notifier, format string, args ...interface{}) {
	n.Notify(LevelError, fmt.Sprintf(format, args...))
}
