package pacing

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

type recordingSleeper struct {
	slept []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

type fakeScroller struct {
	fractions []float64
}

func (f *fakeScroller) ScrollTo(_ context.Context, fraction float64) error {
	f.fractions = append(f.fractions, fraction)
	return nil
}

func TestDelaysStayInRange(t *testing.T) {
	rec := &recordingSleeper{}
	h := New(rand.New(rand.NewSource(1))).WithSleeper(rec.sleep)
	ctx := context.Background()

	tests := []struct {
		name     string
		fn       func(context.Context) error
		min, max time.Duration
	}{
		{"field", h.FieldDelay, 500 * time.Millisecond, time.Second},
		{"step", h.StepDelay, 1500 * time.Millisecond, 2500 * time.Millisecond},
		{"page", h.PageDelay, 2500 * time.Millisecond, 4 * time.Second},
		{"listing", h.ListingDelay, 2 * time.Second, 4 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				if err := tt.fn(ctx); err != nil {
					t.Fatal(err)
				}
				d := rec.slept[len(rec.slept)-1]
				if d < tt.min || d > tt.max {
					t.Fatalf("delay %v outside [%v, %v]", d, tt.min, tt.max)
				}
			}
		})
	}
}

func TestBreakDueEveryTwentieth(t *testing.T) {
	h := New(rand.New(rand.NewSource(1)))

	breaks := 0
	for submitted := 1; submitted <= 65; submitted++ {
		if h.BreakDue(submitted) {
			breaks++
		}
	}
	if breaks != 3 {
		t.Errorf("65 submissions should trigger 3 breaks, got %d", breaks)
	}
	if h.BreakDue(0) {
		t.Error("no break before the first submission")
	}
}

func TestLongBreakDuration(t *testing.T) {
	rec := &recordingSleeper{}
	h := New(rand.New(rand.NewSource(7))).WithSleeper(rec.sleep)

	d, err := h.LongBreak(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d < 3*time.Minute || d > 4*time.Minute {
		t.Errorf("long break %v outside [3m, 4m]", d)
	}
}

func TestMaybeWanderProbability(t *testing.T) {
	rec := &recordingSleeper{}
	h := New(rand.New(rand.NewSource(42))).WithSleeper(rec.sleep)
	s := &fakeScroller{}

	wandered := 0
	const visits = 2000
	for i := 0; i < visits; i++ {
		took, err := h.MaybeWander(context.Background(), s)
		if err != nil {
			t.Fatal(err)
		}
		if took {
			wandered++
		}
	}

	// ~15% with generous slack for the pinned source.
	if wandered < visits/10 || wandered > visits/4 {
		t.Errorf("wandered on %d of %d visits, expected roughly 15%%", wandered, visits)
	}
}

func TestCtxSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ctxSleep(ctx, time.Minute); err == nil {
		t.Fatal("ctxSleep should fail on a cancelled context")
	}
}
