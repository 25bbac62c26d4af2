package apply

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/usharma/easyapply/internal/browser"
)

// Profile holds the fixed operator answers used to populate recognized form
// fields. Fallback is the benign placeholder written into unrecognized required
// free-text questions so they cannot block progress.
type Profile struct {
	FirstName  string
	LastName   string
	City       string
	Phone      string
	ResumePath string
	Fallback   string
}

// Selectors for the form surface. Field layouts vary across postings; a
// selector matching nothing means the category is absent on this step, which
// is never an error.
const (
	applySelector = `button[class*='jobs-apply']`

	firstNameSelector = `input[id*='first-name'], input[name*='first']`
	lastNameSelector  = `input[id*='last-name'], input[name*='last']`
	citySelector      = `input[id*='city'], input[name*='city']`
	phoneSelector     = `input[id*='phoneNumber-nationalNumber']`
	questionSelector  = `input[id*='single-line-text-form-component']:not([id*='phoneNumber'])`
	radioSelector     = `[id*='radio-button-form-component-formElement'] label`
	optionSelector    = `div[class*='fb-text-selectable__option']`
	dropdownSelector  = `select[id*='text-entity-list-form']:not([id*='phoneNumber-country'])`
	uploadSelector    = `input[name='file']`

	errorSelector = `[id*='error']`
)

// action is one of the step-advancing affordances.
type action struct {
	name     string
	selector string
	submits  bool
}

// actionPreference is the fixed tie-break when a step exposes more than one
// affordance: a submit affordance always wins, because reaching it means the
// flow is complete.
var actionPreference = []action{
	{"submit (primary)", `button[aria-label='Submit application'][class*='artdeco-button--primary']`, true},
	{"submit", `button[aria-label='Submit application']`, true},
	{"continue", `button[aria-label='Continue to next step']`, false},
	{"review", `button[aria-label='Review your application']`, false},
}

// populate fills every recognized field category present on the current step.
// Categories that are absent are skipped silently. It returns true when it had
// to request a pause (missing resume file) so the caller can hold at the next
// checkpoint before taking a terminal action.
func (m *Machine) populate(ctx context.Context) (pauseRequested bool, err error) {
	simple := []struct {
		selector string
		value    string
	}{
		{firstNameSelector, m.profile.FirstName},
		{lastNameSelector, m.profile.LastName},
		{citySelector, m.profile.City},
		{phoneSelector, m.profile.Phone},
	}
	for _, f := range simple {
		present, err := m.surface.Exists(ctx, f.selector)
		if err != nil {
			return false, err
		}
		if !present || f.value == "" {
			continue
		}
		if err := m.withStaleRetry(ctx, func() error {
			return m.surface.Fill(ctx, f.selector, f.value)
		}); err != nil {
			return false, err
		}
		if err := m.pacer.FieldDelay(ctx); err != nil {
			return false, err
		}
	}

	// Single-choice controls: pick the affirmative-by-position answer, same as
	// a human rushing through the defaults.
	for _, sel := range []string{radioSelector, optionSelector} {
		n, err := m.surface.ClickEach(ctx, sel)
		if err != nil && !browser.IsStale(err) {
			return false, err
		}
		if n > 0 {
			if err := m.pacer.FieldDelay(ctx); err != nil {
				return false, err
			}
		}
	}

	// Multi-choice dropdowns, excluding the phone-country control.
	if n, err := m.surface.SelectFirstOption(ctx, dropdownSelector); err != nil {
		return false, err
	} else if n > 0 {
		if err := m.pacer.FieldDelay(ctx); err != nil {
			return false, err
		}
	}

	if requested, err := m.answerQuestions(ctx); err != nil || requested {
		return requested, err
	}

	return m.attachResume(ctx)
}

// answerQuestions fills single-line free-text questions. Name-like fields get
// the profile values; anything unrecognized gets the benign placeholder, since
// an empty required field would block the step.
func (m *Machine) answerQuestions(ctx context.Context) (bool, error) {
	fields, err := m.surface.Fields(ctx, questionSelector)
	if err != nil {
		return false, err
	}
	for _, f := range fields {
		key := strings.ToLower(f.ID + " " + f.Name)
		value := m.profile.Fallback
		switch {
		case strings.Contains(key, "first"):
			value = m.profile.FirstName
		case strings.Contains(key, "last"):
			value = m.profile.LastName
		case strings.Contains(key, "city"):
			value = m.profile.City
		}
		err := m.withStaleRetry(ctx, func() error {
			return m.surface.FillField(ctx, questionSelector, f.Index, value)
		})
		if err != nil {
			if browser.IsStale(err) {
				continue
			}
			return false, err
		}
		if err := m.pacer.FieldDelay(ctx); err != nil {
			return false, err
		}
	}
	return false, nil
}

// attachResume uploads the configured resume when the step asks for a file. A
// missing file is a needs-human condition: it requests a pause instead of
// submitting an empty application.
func (m *Machine) attachResume(ctx context.Context) (bool, error) {
	present, err := m.surface.Exists(ctx, uploadSelector)
	if err != nil || !present {
		return false, err
	}
	if m.profile.ResumePath == "" {
		m.coord.Pause("no resume file configured for an upload field")
		return true, nil
	}
	if _, statErr := os.Stat(m.profile.ResumePath); statErr != nil {
		m.log.Warn("resume file missing", zap.String("path", m.profile.ResumePath))
		m.coord.Pause("resume file not found at " + m.profile.ResumePath)
		return true, nil
	}
	if err := m.surface.Upload(ctx, uploadSelector, m.profile.ResumePath); err != nil {
		return false, err
	}
	return false, m.pacer.FieldDelay(ctx)
}

// findAction returns the highest-preference affordance present on the step.
func (m *Machine) findAction(ctx context.Context) (action, bool, error) {
	for _, a := range actionPreference {
		present, err := m.surface.Exists(ctx, a.selector)
		if err != nil {
			return action{}, false, err
		}
		if present {
			return a, true, nil
		}
	}
	return action{}, false, nil
}
