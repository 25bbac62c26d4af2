// Package pacing injects randomized delays and periodic breaks so the session's
// externally observable behavior never looks mechanically regular. All randomness
// flows through an injected rand source and all sleeping through an injectable
// sleeper, so tests can pin both.
package pacing

import (
	"context"
	"math/rand"
	"time"
)

// Scroller is the slice of the browser surface the wander action needs.
type Scroller interface {
	ScrollTo(ctx context.Context, fraction float64) error
}

// Sleeper blocks for the duration or until the context is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Delay ranges by action weight. Field entry is quick; page navigation is the
// heaviest externally visible action.
var (
	fieldDelay   = delayRange{500 * time.Millisecond, time.Second}
	stepDelay    = delayRange{1500 * time.Millisecond, 2500 * time.Millisecond}
	pageDelay    = delayRange{2500 * time.Millisecond, 4 * time.Second}
	listingDelay = delayRange{2 * time.Second, 4 * time.Second}
	longBreak    = delayRange{3 * time.Minute, 4 * time.Minute}
	wanderIdle   = delayRange{2 * time.Second, 4 * time.Second}
	wanderPause  = delayRange{time.Second, 2 * time.Second}
)

// breakEvery is how many submitted applications trigger one extended break.
const breakEvery = 20

// wanderProbability is the chance of one harmless variability action per
// listing-page visit.
const wanderProbability = 0.15

type delayRange struct {
	min, max time.Duration
}

// Humanizer owns the pacing policy for one session.
type Humanizer struct {
	rng   *rand.Rand
	sleep Sleeper
}

func New(rng *rand.Rand) *Humanizer {
	return &Humanizer{rng: rng, sleep: ctxSleep}
}

// WithSleeper replaces the sleeper, for tests.
func (h *Humanizer) WithSleeper(s Sleeper) *Humanizer {
	h.sleep = s
	return h
}

func (h *Humanizer) draw(r delayRange) time.Duration {
	return r.min + time.Duration(h.rng.Int63n(int64(r.max-r.min)+1))
}

// FieldDelay paces a single form-field entry.
func (h *Humanizer) FieldDelay(ctx context.Context) error {
	return h.sleep(ctx, h.draw(fieldDelay))
}

// StepDelay paces the settle time after advancing a form step.
func (h *Humanizer) StepDelay(ctx context.Context) error {
	return h.sleep(ctx, h.draw(stepDelay))
}

// PageDelay paces a page navigation.
func (h *Humanizer) PageDelay(ctx context.Context) error {
	return h.sleep(ctx, h.draw(pageDelay))
}

// ListingDelay paces the wait for a listing page to load.
func (h *Humanizer) ListingDelay(ctx context.Context) error {
	return h.sleep(ctx, h.draw(listingDelay))
}

// BreakDue reports whether the count of submitted applications has just reached
// a multiple of the break interval.
func (h *Humanizer) BreakDue(submitted int) bool {
	return submitted > 0 && submitted%breakEvery == 0
}

// LongBreak sleeps for the extended break of several minutes.
func (h *Humanizer) LongBreak(ctx context.Context) (time.Duration, error) {
	d := h.draw(longBreak)
	return d, h.sleep(ctx, d)
}

// MaybeWander performs, with low probability, one harmless variability action on
// the surface: a half-page scroll, an idle wait, or a scroll to the bottom and
// back. Returns true when an action was taken.
func (h *Humanizer) MaybeWander(ctx context.Context, s Scroller) (bool, error) {
	if h.rng.Float64() >= wanderProbability {
		return false, nil
	}
	switch h.rng.Intn(3) {
	case 0:
		if err := s.ScrollTo(ctx, 0.5); err != nil {
			return true, err
		}
		if err := h.sleep(ctx, h.draw(wanderPause)); err != nil {
			return true, err
		}
		return true, s.ScrollTo(ctx, 0.25)
	case 1:
		return true, h.sleep(ctx, h.draw(wanderIdle))
	default:
		if err := s.ScrollTo(ctx, 1.0); err != nil {
			return true, err
		}
		if err := h.sleep(ctx, h.draw(wanderPause)); err != nil {
			return true, err
		}
		return true, s.ScrollTo(ctx, 0.9)
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
