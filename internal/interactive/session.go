// Package interactive resolves mid-dialogue device prompts (button, PIN,
// passphrase) against an external UI collaborator. The pending-session
// table is the only process-wide mutable state in the core; everything
// else belongs to a single worker.
package interactive

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Kind names why the device is asking for interactive input.
type Kind int

const (
	KindPinCurrent Kind = iota
	KindPinNewFirst
	KindPinNewSecond
	KindPassphrase
)

// PromptEvent is emitted to the external UI collaborator when a Command
// parks waiting on interactive input.
type PromptEvent struct {
	SessionID string
	DeviceID  string
	RequestID string
	Kind      Kind
}

// Answer is what the UI collaborator supplies back for a parked session,
// via ProvidePIN/ProvidePassphrase/CancelPrompt.
type Answer struct {
	Text     string
	Cancel   bool
}

type pendingSession struct {
	deviceID  string
	requestID string
	kind      Kind
	answerCh  chan Answer
}

// Table is the guarded map of session_id to pending session, keyed
// globally rather than per-device because session ids are generated
// fresh for each prompt and never reused.
type Table struct {
	mu       sync.Mutex
	sessions map[string]*pendingSession
}

// NewTable returns an empty session table. One Table is shared by every
// worker in the process.
func NewTable() *Table {
	return &Table{sessions: make(map[string]*pendingSession)}
}

// Register creates a new pending session and returns its id plus the
// channel the Interactive Handler should block on for the answer.
func (t *Table) Register(deviceID, requestID string, kind Kind) (string, <-chan Answer) {
	id := newSessionID()
	ch := make(chan Answer, 1)
	t.mu.Lock()
	t.sessions[id] = &pendingSession{deviceID: deviceID, requestID: requestID, kind: kind, answerCh: ch}
	t.mu.Unlock()
	return id, ch
}

// Answer delivers an answer to a pending session and destroys it. It
// reports false if no such session exists (already answered, cancelled,
// or never registered).
func (t *Table) Answer(sessionID string, answer Answer) bool {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if ok {
		delete(t.sessions, sessionID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	s.answerCh <- answer
	return true
}

// Cancel answers a pending session with Answer{Cancel: true}.
func (t *Table) Cancel(sessionID string) bool {
	return t.Answer(sessionID, Answer{Cancel: true})
}

// Destroy removes a session without delivering an answer, used when a
// parked Command's context is done before the UI answers.
func (t *Table) Destroy(sessionID string) {
	t.mu.Lock()
	delete(t.sessions, sessionID)
	t.mu.Unlock()
}

func newSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
