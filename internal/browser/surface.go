// Package browser drives the single interactive Chrome surface through chromedp.
// Everything above it (scanner, state machine, session controller) talks to the
// Surface interface, so the whole application flow can be exercised against a
// fake in tests.
package browser

import "context"

// Field describes one matched input element, enough for the caller to decide
// what value it should receive.
type Field struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

// Surface is the set of primitives the automation needs from the browser.
// Element queries answer quickly: absence of an element is an answer, never
// a hang.
type Surface interface {
	// Navigate loads the URL and waits for the document body to be ready.
	Navigate(ctx context.Context, url string) error
	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)
	// Title returns the current page title.
	Title(ctx context.Context) (string, error)
	// HTML returns the rendered document markup.
	HTML(ctx context.Context) (string, error)
	// Exists reports whether the selector matches at least one element.
	Exists(ctx context.Context, sel string) (bool, error)
	// Click clicks the first visible element matching the selector.
	Click(ctx context.Context, sel string) error
	// ClickEach clicks every element matching the selector, returning how many.
	ClickEach(ctx context.Context, sel string) (int, error)
	// Fill sets the value of the first element matching the selector.
	Fill(ctx context.Context, sel, value string) error
	// Fields lists the elements matching the selector with their id/name.
	Fields(ctx context.Context, sel string) ([]Field, error)
	// FillField sets the value of the index-th element matching the selector.
	FillField(ctx context.Context, sel string, index int, value string) error
	// SelectFirstOption picks the first real option of every matching select
	// control, returning how many controls were set.
	SelectFirstOption(ctx context.Context, sel string) (int, error)
	// Upload attaches the file to the first matching file input.
	Upload(ctx context.Context, sel, path string) error
	// Texts returns the text content of every element matching the selector.
	Texts(ctx context.Context, sel string) ([]string, error)
	// ScrollTo scrolls to the given fraction of the page height.
	ScrollTo(ctx context.Context, fraction float64) error
	// ScrollThrough scrolls down the page in steps so lazy content loads.
	ScrollThrough(ctx context.Context) error
}
