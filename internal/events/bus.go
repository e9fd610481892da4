// Package events fans out result notifications to live subscribers.
package events

import (
	"sync"
	"time"
)

// Event announces a stored result.
type Event struct {
	Type   string    `json:"type"`
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

const (
	TypeExtraction = "extraction"
	TypeNormalized = "normalized"
	TypeFailed     = "failed"
)

// Bus provides simple in-process pub/sub. Slow subscribers miss events
// rather than block publishers. A nil *Bus drops everything.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus { return &Bus{subs: map[chan Event]struct{}{}} }

// Subscribe returns a buffered channel and a func that detaches it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
