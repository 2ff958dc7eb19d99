package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
)

// TestModeConfig forces settlement timing and outcome when enabled.
type TestModeConfig struct {
	Enabled         bool
	PaymentSuccess  bool
	ProcessingDelay time.Duration
}

// OutcomeDecider picks the settlement result for a payment method.
type OutcomeDecider interface {
	Decide(method string, testMode TestModeConfig) Outcome
}

// RandomOutcome succeeds with a per-method probability.
type RandomOutcome struct {
	UPISuccessRate  float64
	CardSuccessRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomOutcome(upiRate, cardRate float64) *RandomOutcome {
	return &RandomOutcome{
		UPISuccessRate:  upiRate,
		CardSuccessRate: cardRate,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RandomOutcome) Decide(method string, testMode TestModeConfig) Outcome {
	if testMode.Enabled {
		if testMode.PaymentSuccess {
			return OutcomeSuccess
		}
		return OutcomeFailed
	}

	rate := r.CardSuccessRate
	if method == models.MethodUPI {
		rate = r.UPISuccessRate
	}

	r.mu.Lock()
	draw := r.rnd.Float64()
	r.mu.Unlock()

	if draw < rate {
		return OutcomeSuccess
	}
	return OutcomeFailed
}

// FixedOutcome always returns the same result.
type FixedOutcome Outcome

func (f FixedOutcome) Decide(string, TestModeConfig) Outcome {
	return Outcome(f)
}

// DelayRange is an inclusive bound for simulated processing time.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

var (
	delayMu  sync.Mutex
	delayRnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func (d DelayRange) Pick() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	delayMu.Lock()
	n := delayRnd.Int63n(int64(d.Max-d.Min) + 1)
	delayMu.Unlock()
	return d.Min + time.Duration(n)
}

// SimulationConfig controls simulated settlement.
type SimulationConfig struct {
	TestMode     TestModeConfig
	PaymentDelay DelayRange
	RefundDelay  DelayRange
}

func (c SimulationConfig) paymentDelay() time.Duration {
	if c.TestMode.Enabled {
		return c.TestMode.ProcessingDelay
	}
	return c.PaymentDelay.Pick()
}

// sleepContext waits for d unless ctx ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
