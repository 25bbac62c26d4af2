// Package apply drives a single job listing from viewed to a terminal outcome.
// The machine walks the multi-step application form, populating what it
// recognizes, retrying transient staleness in place, and pausing for a human
// whenever the surface shows a validation error it cannot resolve itself.
package apply

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/usharma/easyapply/internal/browser"
	"github.com/usharma/easyapply/internal/ledger"
	"github.com/usharma/easyapply/internal/pacing"
	"github.com/usharma/easyapply/internal/signal"
)

const (
	// maxSettleAttempts bounds how many populate/settle rounds a step gets
	// before the machine concludes it cannot make progress.
	maxSettleAttempts = 3
	// staleRetries bounds in-place retries of an operation that hit a DOM
	// re-render.
	staleRetries = 2
)

// Outcome is the terminal result of one job's processing.
type Outcome struct {
	Result    ledger.Result
	Attempted bool
	Reason    string
	Steps     int
}

// Machine is the application state machine for one session. It is invoked once
// per job ID with the job page already navigated.
type Machine struct {
	surface browser.Surface
	coord   *signal.Coordinator
	pacer   *pacing.Humanizer
	profile Profile
	log     *zap.Logger
}

func NewMachine(surface browser.Surface, coord *signal.Coordinator, pacer *pacing.Humanizer, profile Profile, log *zap.Logger) *Machine {
	return &Machine{
		surface: surface,
		coord:   coord,
		pacer:   pacer,
		profile: profile,
		log:     log.Named("apply"),
	}
}

// Run processes the currently open job page. Expected absences resolve to
// Skipped or Incomplete outcomes; validation errors pause and hold the current
// step until an external resume; only cancellation and unexpected failures
// return an error, which the caller records as a failed outcome at the job
// boundary.
func (m *Machine) Run(ctx context.Context, jobID int64) (Outcome, error) {
	log := m.log.With(zap.Int64("job_id", jobID))

	if err := m.coord.Checkpoint(ctx); err != nil {
		return Outcome{}, err
	}

	// CheckingApplyAction: absence of the apply affordance is a normal
	// terminal outcome, not an error.
	hasApply, err := m.surface.Exists(ctx, applySelector)
	if err != nil {
		return Outcome{}, &StepError{Step: 0, Message: "probing apply action", Cause: err}
	}
	if !hasApply {
		log.Info("no apply action available")
		return Outcome{Result: ledger.ResultSkipped, Attempted: false, Reason: "no apply action available"}, nil
	}

	if err := m.withStaleRetry(ctx, func() error {
		return m.surface.Click(ctx, applySelector)
	}); err != nil {
		return Outcome{}, &StepError{Step: 0, Message: "clicking apply action", Cause: err}
	}
	if err := m.pacer.StepDelay(ctx); err != nil {
		return Outcome{}, err
	}

	return m.step(ctx, log)
}

// step is the Stepping loop: one iteration per form page. Within a step the
// order is: checkpoint, error scan, populate, checkpoint, terminal action.
// A detected validation error pauses and then re-attempts the same step; it is
// never skipped past unresolved.
func (m *Machine) step(ctx context.Context, log *zap.Logger) (Outcome, error) {
	steps := 0
	settleAttempts := 0

	for {
		if err := m.coord.Checkpoint(ctx); err != nil {
			return Outcome{}, err
		}

		paused, err := m.scanForErrors(ctx, log)
		if err != nil {
			return Outcome{}, &StepError{Step: steps + 1, Message: "scanning for form errors", Cause: err}
		}
		if paused {
			// Held until an external resume, then the same step is retried.
			if err := m.coord.Checkpoint(ctx); err != nil {
				return Outcome{}, err
			}
			continue
		}

		if err := m.surface.ScrollTo(ctx, 1.0); err != nil && !browser.IsStale(err) {
			return Outcome{}, &StepError{Step: steps + 1, Message: "scrolling form", Cause: err}
		}

		pauseRequested, err := m.populate(ctx)
		if err != nil {
			return Outcome{}, &StepError{Step: steps + 1, Message: "populating fields", Cause: err}
		}
		if pauseRequested {
			if err := m.coord.Checkpoint(ctx); err != nil {
				return Outcome{}, err
			}
			continue
		}

		// Terminal actions are suspension points too: re-check before clicking
		// anything that advances or submits.
		if err := m.coord.Checkpoint(ctx); err != nil {
			return Outcome{}, err
		}

		act, found, err := m.findAction(ctx)
		if err != nil {
			return Outcome{}, &StepError{Step: steps + 1, Message: "locating step action", Cause: err}
		}
		if !found {
			settleAttempts++
			if settleAttempts >= maxSettleAttempts {
				log.Info("no step action after settle attempts", zap.Int("steps", steps))
				return Outcome{
					Result:    ledger.ResultIncomplete,
					Attempted: true,
					Reason:    "no continue, review, or submit action available",
					Steps:     steps,
				}, nil
			}
			if err := m.pacer.StepDelay(ctx); err != nil {
				return Outcome{}, err
			}
			continue
		}
		settleAttempts = 0
		steps++

		log.Debug("step action", zap.Int("step", steps), zap.String("action", act.name))
		if err := m.withStaleRetry(ctx, func() error {
			return m.surface.Click(ctx, act.selector)
		}); err != nil {
			return Outcome{}, &StepError{Step: steps, Message: "clicking " + act.name, Cause: err}
		}
		if err := m.pacer.StepDelay(ctx); err != nil {
			return Outcome{}, err
		}

		if act.submits {
			log.Info("application submitted", zap.Int("steps", steps))
			return Outcome{Result: ledger.ResultSubmitted, Attempted: true, Steps: steps}, nil
		}
	}
}

// scanForErrors inspects the step for a visible validation-error region. When
// one is found the machine requests a pause carrying the error text; it never
// auto-resumes from it.
func (m *Machine) scanForErrors(ctx context.Context, log *zap.Logger) (bool, error) {
	texts, err := m.surface.Texts(ctx, errorSelector)
	if err != nil {
		if browser.IsStale(err) {
			return false, nil
		}
		return false, err
	}
	var visible []string
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			visible = append(visible, t)
		}
	}
	if len(visible) == 0 {
		return false, nil
	}
	reason := "form error: " + strings.Join(visible, " | ")
	log.Warn("validation error detected, pausing", zap.String("reason", reason))
	m.coord.Pause(reason)
	return true, nil
}

// withStaleRetry retries an element operation in place when the DOM re-rendered
// underneath it. Staleness is transient instability, never surfaced.
func (m *Machine) withStaleRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= staleRetries; attempt++ {
		if err = op(); err == nil || !browser.IsStale(err) {
			return err
		}
		if serr := m.pacer.FieldDelay(ctx); serr != nil {
			return serr
		}
	}
	return err
}
