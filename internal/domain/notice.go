package domain

import (
	"sync"
	"time"
)

// Notice is a user-visible message from a venue, typically the payload
// of an ERROR event. Notices never mutate account state.
type Notice struct {
	Asset   Asset
	Message string
	AtUnixM int64 // Unix microseconds
}

// NoticeLog is a bounded, thread-safe log of recent venue notices.
// When full, the oldest notice is dropped.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
}

// NewNoticeLog creates a log keeping at most limit notices.
func NewNoticeLog(limit int) *NoticeLog {
	if limit <= 0 {
		limit = 64
	}
	return &NoticeLog{limit: limit}
}

// Add appends a notice, evicting the oldest if the log is full.
func (l *NoticeLog) Add(asset Asset, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.notices = append(l.notices, Notice{
		Asset:   asset,
		Message: message,
		AtUnixM: time.Now().UnixMicro(),
	})
	if len(l.notices) > l.limit {
		l.notices = l.notices[len(l.notices)-l.limit:]
	}
}

// Recent returns up to n notices, newest last.
func (l *NoticeLog) Recent(n int) []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.notices) {
		n = len(l.notices)
	}
	out := make([]Notice, n)
	copy(out, l.notices[len(l.notices)-n:])
	return out
}

// Len returns the number of retained notices.
func (l *NoticeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.notices)
}
