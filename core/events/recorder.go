package events

import (
	"sync"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/core/types"
)

// payloadEvent is implemented by events that carry a canonical typed payload.
// Engines wrap their *types.Event values in a small adapter satisfying this
// interface before emitting.
type payloadEvent interface {
	Event
	Event() *types.Event
}

// Recorded pairs an emitted event with its recorder-assigned sequence number.
// Sequences are monotonic across the recorder's lifetime and survive eviction,
// so clients can use them as a stable cursor.
type Recorded struct {
	Sequence uint64
	Event    *types.Event
}

// Recorder retains the most recent emitted events in memory so the RPC layer
// can serve event history queries. Older entries are evicted once the
// configured limit is reached.
type Recorder struct {
	mu      sync.RWMutex
	limit   int
	nextSeq uint64
	events  []Recorded
}

const defaultRecorderLimit = 1024

// NewRecorder constructs a recorder retaining up to limit events. A
// non-positive limit falls back to the default capacity.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = defaultRecorderLimit
	}
	return &Recorder{limit: limit, nextSeq: 1}
}

// Emit implements the Emitter interface. Events without a typed payload are
// recorded with their type only.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	var payload *types.Event
	if typed, ok := evt.(payloadEvent); ok {
		payload = typed.Event()
	}
	if payload == nil {
		payload = &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Sequence: r.nextSeq, Event: payload})
	r.nextSeq++
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns a copy of the recorded entries in emission order.
func (r *Recorder) Events() []Recorded {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Recorded, len(r.events))
	for i, rec := range r.events {
		out[i] = Recorded{Sequence: rec.Sequence, Event: rec.Event.Clone()}
	}
	return out
}
