package auth

import (
	"sync"
	"time"
)

// FlowState models the phone+OTP sign-in as an explicit machine instead of
// per-flow boolean flags. Every path terminates in the same login-shaped
// completion.
type FlowState string

const (
	FlowIdle       FlowState = "idle"
	FlowChallenged FlowState = "challenged"
	FlowConfirmed  FlowState = "confirmed"
	FlowFailed     FlowState = "failed"
)

const flowTTL = 5 * time.Minute

type otpFlow struct {
	state       FlowState
	phone       string
	challengeID string
	expiresAt   time.Time
}

// flowRegistry tracks in-flight OTP challenges. Flows are short-lived and
// in-memory only; a restart simply requires requesting a new code.
type flowRegistry struct {
	mu    sync.Mutex
	flows map[string]*otpFlow
}

func newFlowRegistry() *flowRegistry {
	return &flowRegistry{flows: make(map[string]*otpFlow)}
}

func (r *flowRegistry) put(id string, f *otpFlow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(time.Now())
	r.flows[id] = f
}

// take returns the flow if it is still confirmable and removes it from the
// registry. A flow is single-use: whatever the confirmation outcome, it is
// gone afterwards.
func (r *flowRegistry) take(id string, now time.Time) (*otpFlow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
	f, ok := r.flows[id]
	if !ok || f.state != FlowChallenged {
		return nil, false
	}
	delete(r.flows, id)
	return f, true
}

func (r *flowRegistry) sweepLocked(now time.Time) {
	for id, f := range r.flows {
		if now.After(f.expiresAt) {
			delete(r.flows, id)
		}
	}
}
