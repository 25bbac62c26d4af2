package apply

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/usharma/easyapply/internal/browser"
	"github.com/usharma/easyapply/internal/ledger"
	"github.com/usharma/easyapply/internal/pacing"
	"github.com/usharma/easyapply/internal/signal"
)

// formPage scripts one step of a fake application flow.
type formPage struct {
	present map[string]bool
	errors  []string
	fields  []browser.Field
}

// fakeSurface plays back a scripted flow: clicking a continue/review affordance
// advances to the next page, clicking a submit affordance ends it.
type fakeSurface struct {
	mu        sync.Mutex
	pages     []*formPage
	idx       int
	clicked   []string
	filled    map[string]string
	staleLeft map[string]int
}

func newFakeSurface(pages ...*formPage) *fakeSurface {
	return &fakeSurface{
		pages:     pages,
		filled:    make(map[string]string),
		staleLeft: make(map[string]int),
	}
}

func (f *fakeSurface) page() *formPage {
	if f.idx >= len(f.pages) {
		return &formPage{present: map[string]bool{}}
	}
	return f.pages[f.idx]
}

func (f *fakeSurface) clearErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.page().errors = nil
}

func (f *fakeSurface) clickCount(sel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.clicked {
		if c == sel {
			n++
		}
	}
	return n
}

func (f *fakeSurface) Navigate(context.Context, string) error { return nil }
func (f *fakeSurface) Location(context.Context) (string, error) {
	return "https://example.test/jobs/view/1", nil
}
func (f *fakeSurface) Title(context.Context) (string, error) { return "", nil }
func (f *fakeSurface) HTML(context.Context) (string, error)  { return "", nil }

func (f *fakeSurface) Exists(_ context.Context, sel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page().present[sel], nil
}

func (f *fakeSurface) Click(_ context.Context, sel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleLeft[sel] > 0 {
		f.staleLeft[sel]--
		return &browser.ElementError{Selector: sel, Message: "node gone", Stale: true}
	}
	f.clicked = append(f.clicked, sel)
	for _, a := range actionPreference {
		if a.selector == sel && !a.submits {
			f.idx++
		}
	}
	return nil
}

func (f *fakeSurface) ClickEach(context.Context, string) (int, error) { return 0, nil }

func (f *fakeSurface) Fill(_ context.Context, sel, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filled[sel] = value
	return nil
}

func (f *fakeSurface) Fields(_ context.Context, _ string) ([]browser.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page().fields, nil
}

func (f *fakeSurface) FillField(_ context.Context, sel string, index int, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filled[sel] = value
	return nil
}

func (f *fakeSurface) SelectFirstOption(context.Context, string) (int, error) { return 0, nil }
func (f *fakeSurface) Upload(context.Context, string, string) error           { return nil }

func (f *fakeSurface) Texts(_ context.Context, sel string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sel == errorSelector {
		return f.page().errors, nil
	}
	return nil, nil
}

func (f *fakeSurface) ScrollTo(context.Context, float64) error { return nil }
func (f *fakeSurface) ScrollThrough(context.Context) error     { return nil }

func instantPacer() *pacing.Humanizer {
	return pacing.New(rand.New(rand.NewSource(1))).
		WithSleeper(func(context.Context, time.Duration) error { return nil })
}

func newTestMachine(surface browser.Surface, coord *signal.Coordinator) *Machine {
	return NewMachine(surface, coord, instantPacer(), Profile{
		FirstName: "Ada",
		LastName:  "Lovelace",
		City:      "London",
		Phone:     "+447000000000",
		Fallback:  "5",
	}, zap.NewNop())
}

func applyPage(extra map[string]bool) *formPage {
	present := map[string]bool{applySelector: true}
	for k, v := range extra {
		present[k] = v
	}
	return &formPage{present: present}
}

func stepPage(actions ...string) *formPage {
	present := map[string]bool{}
	for _, name := range actions {
		for _, a := range actionPreference {
			if a.name == name {
				present[a.selector] = true
			}
		}
	}
	return &formPage{present: present}
}

func TestRunNoApplyAction(t *testing.T) {
	surface := newFakeSurface(&formPage{present: map[string]bool{}})
	m := newTestMachine(surface, signal.NewCoordinator())

	out, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result != ledger.ResultSkipped || out.Attempted {
		t.Errorf("outcome = %+v, want skipped/unattempted", out)
	}
	if out.Reason != "no apply action available" {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestRunContinueContinueSubmit(t *testing.T) {
	surface := newFakeSurface(
		applyPage(map[string]bool{actionPreference[2].selector: true}), // continue
		stepPage("continue"),
		stepPage("submit"),
	)
	// Clicking apply does not advance pages; the first step's continue is on
	// the same scripted page as the apply button.
	m := newTestMachine(surface, signal.NewCoordinator())

	out, err := m.Run(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result != ledger.ResultSubmitted || !out.Attempted {
		t.Errorf("outcome = %+v, want submitted", out)
	}
	if out.Steps != 3 {
		t.Errorf("visited %d steps, want 3", out.Steps)
	}
	if n := surface.clickCount(actionPreference[1].selector); n != 1 {
		t.Errorf("submit clicked %d times, want 1", n)
	}
}

func TestSubmitWinsOverContinueAndReview(t *testing.T) {
	surface := newFakeSurface(applyPage(nil), stepPage("continue", "review", "submit"))
	surface.pages[0] = applyPage(map[string]bool{
		actionPreference[1].selector: true, // submit
		actionPreference[2].selector: true, // continue
		actionPreference[3].selector: true, // review
	})
	m := newTestMachine(surface, signal.NewCoordinator())

	out, err := m.Run(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result != ledger.ResultSubmitted || out.Steps != 1 {
		t.Errorf("outcome = %+v, want submitted in one step", out)
	}
	if surface.clickCount(actionPreference[2].selector) != 0 {
		t.Error("continue should never be clicked when submit is present")
	}
}

func TestRunIncompleteAfterSettleAttempts(t *testing.T) {
	surface := newFakeSurface(applyPage(nil)) // apply exists, no actions ever
	m := newTestMachine(surface, signal.NewCoordinator())

	out, err := m.Run(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result != ledger.ResultIncomplete || !out.Attempted {
		t.Errorf("outcome = %+v, want incomplete/attempted", out)
	}
}

func TestValidationErrorPausesAndResumesSameStep(t *testing.T) {
	second := stepPage("submit")
	second.errors = []string{"Please enter a valid phone number"}
	surface := newFakeSurface(
		applyPage(map[string]bool{actionPreference[2].selector: true}),
		second,
	)
	coord := signal.NewCoordinator()
	m := newTestMachine(surface, coord)

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := m.Run(context.Background(), 5)
		done <- result{out, err}
	}()

	// The machine must pause with the error text, not press on.
	deadline := time.After(2 * time.Second)
	for {
		if paused, reason := coord.State(); paused {
			if reason != "form error: Please enter a valid phone number" {
				t.Fatalf("pause reason = %q", reason)
			}
			break
		}
		select {
		case r := <-done:
			t.Fatalf("machine finished (%+v, %v) without pausing", r.out, r.err)
		case <-deadline:
			t.Fatal("machine never paused on the validation error")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	// Operator fixes the form and resumes; the same step is re-attempted.
	surface.clearErrors()
	coord.Resume()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if r.out.Result != ledger.ResultSubmitted {
			t.Errorf("outcome after resume = %+v, want submitted", r.out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("machine did not finish after resume")
	}
}

func TestCancelWhilePausedAbortsJob(t *testing.T) {
	page := applyPage(nil)
	page.errors = []string{"Something is wrong"}
	surface := newFakeSurface(page)
	coord := signal.NewCoordinator()
	m := newTestMachine(surface, coord)

	done := make(chan error, 1)
	go func() {
		_, err := m.Run(context.Background(), 6)
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for {
		if paused, _ := coord.State(); paused {
			break
		}
		select {
		case <-deadline:
			t.Fatal("machine never paused")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	coord.Cancel()
	select {
	case err := <-done:
		if !errors.Is(err, signal.ErrCancelled) {
			t.Fatalf("want ErrCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("machine did not observe cancel")
	}
}

func TestStaleApplyClickRetriedInPlace(t *testing.T) {
	surface := newFakeSurface(applyPage(map[string]bool{actionPreference[1].selector: true}))
	surface.staleLeft[applySelector] = 2
	m := newTestMachine(surface, signal.NewCoordinator())

	out, err := m.Run(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result != ledger.ResultSubmitted {
		t.Errorf("outcome = %+v, want submitted after stale retries", out)
	}
	if n := surface.clickCount(applySelector); n != 1 {
		t.Errorf("apply clicked %d times after retries, want 1", n)
	}
}

func TestPopulateFillsProfileFields(t *testing.T) {
	page := applyPage(map[string]bool{
		firstNameSelector:            true,
		lastNameSelector:             true,
		citySelector:                 true,
		phoneSelector:                true,
		actionPreference[1].selector: true,
	})
	page.fields = []browser.Field{{Index: 0, ID: "single-line-text-form-component-years", Name: ""}}
	surface := newFakeSurface(page)
	m := newTestMachine(surface, signal.NewCoordinator())

	if _, err := m.Run(context.Background(), 8); err != nil {
		t.Fatal(err)
	}
	if surface.filled[firstNameSelector] != "Ada" ||
		surface.filled[lastNameSelector] != "Lovelace" ||
		surface.filled[citySelector] != "London" ||
		surface.filled[phoneSelector] != "+447000000000" {
		t.Errorf("profile fields not filled: %v", surface.filled)
	}
	if surface.filled[questionSelector] != "5" {
		t.Errorf("unrecognized question got %q, want the fallback answer", surface.filled[questionSelector])
	}
}
