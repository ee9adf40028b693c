package tracker

import (
	"time"

	"github.com/stepamak/pump-tracker/internal/domain"
)

// Token is one buffered event as presented to subscribers.
type Token struct {
	domain.TokenEvent
	// DevMarked is set when the developer was added to a list during
	// the current session.
	DevMarked bool
}

// Stats are the diagnostic counters. Received never resets; the other
// counters restart with every Start.
type Stats struct {
	Received       uint64
	Parsed         uint64 // events admitted into the buffer
	Errors         uint64 // messages that could not be decoded
	HistoryDropped uint64
	Rejected       uint64
}

// Connection describes the feed state as last reported by the manager.
type Connection struct {
	Connected bool
	Reason    string
	SessionID string
	StartedAt time.Time
}

// Status is the one-line connection summary.
func (c Connection) Status() string {
	if c.Connected {
		return "Connected"
	}
	if c.Reason == "" {
		return "Disconnected"
	}
	return "Disconnected: " + c.Reason
}

// Snapshot is an immutable view of the tracker published after every
// processed inbox item.
type Snapshot struct {
	Seq        uint64
	Tokens     []Token // newest first
	MaxItems   int
	Stats      Stats
	Connection Connection
	// LastMessage is a truncated copy of the most recent raw message.
	LastMessage string
}
