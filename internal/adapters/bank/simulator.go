package bank

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"payment-gateway/internal/core/domain"
)

// DecisionSource produces the authorize/decline outcome for a request. It is
// injected so tests can fix outcomes without touching process-wide state.
type DecisionSource func(req domain.AuthorizationRequest) domain.BankDecision

// Simulator stands in for the acquiring bank. It is a logical boundary, not
// a network one: synchronous, total, and it never returns a non-nil error.
// An optional latency models the round trip to a real processor.
type Simulator struct {
	decide  DecisionSource
	latency time.Duration
}

func NewSimulator(decide DecisionSource, latency time.Duration) *Simulator {
	return &Simulator{decide: decide, latency: latency}
}

// Authorize implements the AcquiringBank port.
func (s *Simulator) Authorize(ctx context.Context, req domain.AuthorizationRequest) (domain.BankDecision, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.decide(req), nil
}

// AlwaysAuthorize approves every request.
func AlwaysAuthorize(domain.AuthorizationRequest) domain.BankDecision {
	return domain.DecisionAuthorized
}

// AlwaysDecline declines every request.
func AlwaysDecline(domain.AuthorizationRequest) domain.BankDecision {
	return domain.DecisionDeclined
}

// DeclineOddLastDigit declines when the last digit of the card number is
// odd. Handy for reproducible end-to-end runs: the outcome is a property of
// the test card itself.
func DeclineOddLastDigit(req domain.AuthorizationRequest) domain.BankDecision {
	if req.CardNumber == "" {
		return domain.DecisionDeclined
	}
	last := req.CardNumber[len(req.CardNumber)-1]
	if (last-'0')%2 == 1 {
		return domain.DecisionDeclined
	}
	return domain.DecisionAuthorized
}

// SeededDecisions authorizes with the given probability using a private
// seeded generator, so a run is reproducible from its seed while individual
// calls still vary. The generator is guarded because the engine is called
// from many goroutines.
func SeededDecisions(seed int64, approvalRate float64) DecisionSource {
	rng := rand.New(rand.NewSource(seed))
	var mu sync.Mutex
	return func(domain.AuthorizationRequest) domain.BankDecision {
		mu.Lock()
		roll := rng.Float64()
		mu.Unlock()
		if roll < approvalRate {
			return domain.DecisionAuthorized
		}
		return domain.DecisionDeclined
	}
}
