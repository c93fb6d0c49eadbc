package httpmw

import (
	"context"
	"sync"

	"github.com/keithlinneman/staticrouter/internal/log"
)

type spyRecord struct {
	level string
	msg   string
	err   error
	kv    []any
}

// spyLogger records every call; With accumulates fields onto the record.
type spyLogger struct {
	mu      *sync.Mutex
	records *[]spyRecord
	fields  []any
}

func newSpyLogger() *spyLogger {
	return &spyLogger{mu: &sync.Mutex{}, records: &[]spyRecord{}}
}

func (s *spyLogger) With(kv ...any) log.Logger {
	return &spyLogger{mu: s.mu, records: s.records, fields: append(append([]any{}, s.fields...), kv...)}
}

func (s *spyLogger) add(level, msg string, err error, kv []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.records = append(*s.records, spyRecord{level: level, msg: msg, err: err, kv: append(append([]any{}, s.fields...), kv...)})
}

func (s *spyLogger) Debug(_ context.Context, msg string, kv ...any) { s.add("debug", msg, nil, kv) }
func (s *spyLogger) Info(_ context.Context, msg string, kv ...any)  { s.add("info", msg, nil, kv) }
func (s *spyLogger) Warn(_ context.Context, msg string, kv ...any)  { s.add("warn", msg, nil, kv) }
func (s *spyLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	s.add("error", msg, err, kv)
}
func (s *spyLogger) Sync() error { return nil }

func (s *spyLogger) all() []spyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spyRecord{}, *s.records...)
}

func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return kv[i+1], true
		}
	}
	return nil, false
}
