// Package logstore is the durable application log: a bounded, observable list
// of entries the view renders in the log panel. It is domain state, not
// diagnostics; every entry is additionally mirrored to the ambient logger.
package logstore

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorehold/gmassist/internal/store"
)

// LogKey is the document key the log document is stored under.
const LogKey = "PBM_GM_ASSISTANT_LOGS"

// MaxEntries bounds the log. The oldest entries are evicted first.
const MaxEntries = 250

// Level classifies a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one recorded log line. Data holds the structured payload captured
// at record time; later mutation of the source value cannot change it.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Level     Level           `json:"level"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Log is the bounded durable log store.
type Log struct {
	mu      sync.RWMutex
	docs    store.Docs
	logger  *zap.Logger
	entries []Entry
	subs    map[int]func([]Entry)
	nextSub int
}

// New opens the log over the given document storage, loading any persisted
// entries. An unparseable log document is discarded and the durable copy
// reset; logging must keep working even when its own storage went bad.
// A nil logger defaults to a no-op logger.
func New(docs store.Docs, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Log{
		docs:   docs,
		logger: logger,
		subs:   make(map[int]func([]Entry)),
	}
	l.entries = l.loadLocked()
	return l
}

func (l *Log) loadLocked() []Entry {
	raw, ok, err := l.docs.Get(LogKey)
	if err != nil {
		l.logger.Warn("read persisted log", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		l.logger.Warn("persisted log unparseable, resetting", zap.Error(err))
		if derr := l.docs.Delete(LogKey); derr != nil {
			l.logger.Warn("reset persisted log", zap.Error(derr))
		}
		return nil
	}
	return entries
}

// Record appends an entry. data may be nil; otherwise it is marshaled now so
// the stored payload is a snapshot. Persistence failure is swallowed after a
// warning: an entry that cannot be saved is still shown.
func (l *Log) Record(level Level, message string, data any) Entry {
	var payload json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			l.logger.Warn("marshal log payload", zap.Error(err))
		} else {
			payload = b
		}
	}
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Data:      payload,
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[len(l.entries)-MaxEntries:]
	}
	snapshot := l.snapshotLocked()
	subs := l.snapshotSubsLocked()
	// Persist before releasing the lock: concurrent records must reach
	// durable storage in append order or an older snapshot could land last.
	l.persist(snapshot)
	l.mu.Unlock()

	l.mirror(e)
	for _, fn := range subs {
		fn(snapshot)
	}
	return e
}

// Info records an informational entry.
func (l *Log) Info(message string, data any) Entry { return l.Record(LevelInfo, message, data) }

// Warn records a warning entry.
func (l *Log) Warn(message string, data any) Entry { return l.Record(LevelWarn, message, data) }

// Error records an error entry.
func (l *Log) Error(message string, data any) Entry { return l.Record(LevelError, message, data) }

// Entries returns a copy of the current entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// Clear removes every entry and the durable document, then records a single
// entry noting the clear.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()

	if err := l.docs.Delete(LogKey); err != nil {
		l.logger.Warn("delete persisted log", zap.Error(err))
	}
	l.Record(LevelInfo, "Logs cleared.", nil)
}

// Subscribe registers a callback invoked with the full entry list after every
// recorded entry. The returned id cancels the subscription.
func (l *Log) Subscribe(fn func([]Entry)) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (l *Log) Unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, id)
}

func (l *Log) snapshotLocked() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) snapshotSubsLocked() []func([]Entry) {
	out := make([]func([]Entry), 0, len(l.subs))
	for _, fn := range l.subs {
		out = append(out, fn)
	}
	return out
}

func (l *Log) persist(entries []Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		l.logger.Warn("marshal log document", zap.Error(err))
		return
	}
	if err := l.docs.Put(LogKey, string(data)); err != nil {
		l.logger.Warn("persist log document", zap.Error(err))
	}
}

func (l *Log) mirror(e Entry) {
	fields := []zap.Field{zap.String("entry_id", e.ID)}
	if e.Data != nil {
		fields = append(fields, zap.Any("data", json.RawMessage(e.Data)))
	}
	switch e.Level {
	case LevelError:
		l.logger.Error(e.Message, fields...)
	case LevelWarn:
		l.logger.Warn(e.Message, fields...)
	default:
		l.logger.Info(e.Message, fields...)
	}
}
