package service

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// auditLog writes one JSON object per line, the same shape as the request
// logger, for every action decision.
type auditLog struct {
	mu  sync.Mutex
	enc *json.Encoder
	loc *time.Location
	now func() time.Time
}

func newAuditLog(w io.Writer, loc *time.Location, now func() time.Time) *auditLog {
	if w == nil {
		w = os.Stdout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &auditLog{enc: json.NewEncoder(w), loc: loc, now: now}
}

func (a *auditLog) write(level, msg string, fields map[string]any) {
	entry := map[string]any{
		"ts":    a.now().In(a.loc).Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		entry[k] = v
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(entry)
}
