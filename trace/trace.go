// Package trace is the append-only, HMAC-signed event log an
// orchestrator produces as it executes: every event is stamped with a
// monotonic id, timestamped, signed, and never truncated or reordered.
package trace

import (
	"sync"
	"time"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/crypto"
)

// Event is one signed entry in the trace. SupervisorSig is computed over
// every other field via crypto.SignEvent and is never itself part of the
// signed payload.
type Event struct {
	EventID       int    `json:"eventId"`
	Ts            int64  `json:"ts"`
	Kind          string `json:"kind"`
	Depth         int    `json:"depth"`
	AgentName     string `json:"agentName"`
	ParentRunID   string `json:"parentRunId"`
	ChildRunID    string `json:"childRunId"`
	InputHash     string `json:"inputHash"`
	OutputHash    string `json:"outputHash"`
	Note          string `json:"note"`
	SupervisorSig string `json:"supervisorSig"`
}

// UnsignedEvent is what callers pass to AddEvent; EventID, Ts, and
// SupervisorSig are filled in by the trace.
type UnsignedEvent struct {
	Kind        string
	Depth       int
	AgentName   string
	ParentRunID string
	ChildRunID  string
	InputHash   string
	OutputHash  string
	Note        string
}

// Stats summarizes a trace's contents.
type Stats struct {
	TotalEvents int
	CountByKind map[string]int
	DeepestSeen int
}

// Trace is owned by exactly one orchestrator instance.
type Trace struct {
	mu     sync.Mutex
	secret []byte
	seq    int
	events []Event
}

// New creates an empty trace signed with secret.
func New(secret []byte) *Trace {
	return &Trace{secret: secret}
}

// payload returns the portion of e that gets signed: every field except
// SupervisorSig, as a generic map so crypto.Canonical sees plain JSON
// values rather than a struct with a zero-value signature field.
func payload(e Event) map[string]interface{} {
	return map[string]interface{}{
		"eventId":     e.EventID,
		"ts":          e.Ts,
		"kind":        e.Kind,
		"depth":       e.Depth,
		"agentName":   e.AgentName,
		"parentRunId": e.ParentRunID,
		"childRunId":  e.ChildRunID,
		"inputHash":   e.InputHash,
		"outputHash":  e.OutputHash,
		"note":        e.Note,
	}
}

// AddEvent assigns eventId = ++seq, stamps ts = now, signs the event, and
// appends it. It returns the signed event as appended.
func (t *Trace) AddEvent(unsigned UnsignedEvent) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	e := Event{
		EventID:     t.seq,
		Ts:          time.Now().UnixMilli(),
		Kind:        unsigned.Kind,
		Depth:       unsigned.Depth,
		AgentName:   unsigned.AgentName,
		ParentRunID: unsigned.ParentRunID,
		ChildRunID:  unsigned.ChildRunID,
		InputHash:   unsigned.InputHash,
		OutputHash:  unsigned.OutputHash,
		Note:        unsigned.Note,
	}

	sig, err := crypto.SignEvent(t.secret, payload(e))
	if err != nil {
		return Event{}, core.NewFrameworkError("trace.AddEvent", "trace", err)
	}
	e.SupervisorSig = sig

	t.events = append(t.events, e)
	return e, nil
}

// Export returns a defensive copy of every event appended so far, in
// eventId order.
func (t *Trace) Export() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// GetStats summarizes the trace: total events, counts by kind, and the
// deepest depth observed across any event.
func (t *Trace) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{
		TotalEvents: len(t.events),
		CountByKind: make(map[string]int),
	}
	for _, e := range t.events {
		stats.CountByKind[e.Kind]++
		if e.Depth > stats.DeepestSeen {
			stats.DeepestSeen = e.Depth
		}
	}
	return stats
}

// VerifyEventSig recomputes e's signature against secret and returns
// whether it is valid. Exported so validator.Validator (and tests) can
// check a single event's signature without recomputing payload() itself.
func VerifyEventSig(secret []byte, e Event) (bool, error) {
	return crypto.VerifyEventSig(secret, payload(e), e.SupervisorSig)
}
