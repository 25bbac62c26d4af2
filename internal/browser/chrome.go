package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Timeouts for browser work. Element-level operations are deliberately short:
// chromedp query actions wait for a match, and an absent element must resolve
// as an answer rather than stall a form step.
const (
	navigateTimeout = 30 * time.Second
	elementTimeout  = 5 * time.Second
)

// Options configures the Chrome process.
type Options struct {
	// Headless runs without a visible window. Interactive takeover needs a
	// headed browser, so unattended runs usually keep this off too.
	Headless bool
	// UserDataDir reuses an existing Chrome profile, which keeps the login
	// session across runs.
	UserDataDir string
}

// Chrome is the chromedp-backed Surface. One Chrome drives one tab; it is only
// ever used from the single automation goroutine.
type Chrome struct {
	ctx     context.Context
	cancels []context.CancelFunc
	log     *zap.Logger
}

// Launch starts Chrome and opens the automation tab. Failure here is fatal to
// the session: without a surface there is nothing to drive.
func Launch(ctx context.Context, opts Options, log *zap.Logger) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{cancelTab, cancelAlloc},
		log:     log.Named("browser"),
	}

	// Start the browser process now so a broken Chrome install surfaces as a
	// startup error instead of failing on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		c.Close()
		return nil, &SessionError{Message: "starting chrome", Cause: err}
	}
	return c, nil
}

// Close shuts the tab and the browser process down.
func (c *Chrome) Close() {
	for _, cancel := range c.cancels {
		cancel()
	}
}

// run executes chromedp actions under a deadline derived from the caller's
// context and the tab context.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.log.Debug("navigate", zap.String("url", url))
	err := c.run(ctx, navigateTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &NavigationError{Message: fmt.Sprintf("navigating to %s", url), Cause: err}
	}
	return nil
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, elementTimeout, chromedp.Location(&url)); err != nil {
		return "", &ElementError{Message: "reading location", Cause: err}
	}
	return url, nil
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	if err := c.run(ctx, elementTimeout, chromedp.Title(&title)); err != nil {
		return "", &ElementError{Message: "reading title", Cause: err}
	}
	return title, nil
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, elementTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", &ElementError{Message: "reading document markup", Cause: err}
	}
	return html, nil
}

func (c *Chrome) Exists(ctx context.Context, sel string) (bool, error) {
	var found bool
	expr := fmt.Sprintf(`document.querySelector(%q) !== null`, sel)
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(expr, &found)); err != nil {
		return false, &ElementError{Selector: sel, Message: "probing element", Cause: err}
	}
	return found, nil
}

func (c *Chrome) Click(ctx context.Context, sel string) error {
	err := c.run(ctx, elementTimeout, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
	if err != nil {
		return &ElementError{Selector: sel, Message: "clicking element", Cause: err}
	}
	return nil
}

func (c *Chrome) ClickEach(ctx context.Context, sel string) (int, error) {
	var count int
	expr := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%q);
		els.forEach(el => { el.scrollIntoView(); el.click(); });
		return els.length;
	})()`, sel)
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(expr, &count)); err != nil {
		return 0, &ElementError{Selector: sel, Message: "clicking elements", Cause: err}
	}
	return count, nil
}

func (c *Chrome) Fill(ctx context.Context, sel, value string) error {
	err := c.run(ctx, elementTimeout,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
	if err != nil {
		return &ElementError{Selector: sel, Message: "filling element", Cause: err}
	}
	return nil
}

func (c *Chrome) Fields(ctx context.Context, sel string) ([]Field, error) {
	var fields []Field
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map((el, i) => (
		{index: i, id: el.id || "", name: el.name || ""}
	))`, sel)
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(expr, &fields)); err != nil {
		return nil, &ElementError{Selector: sel, Message: "listing fields", Cause: err}
	}
	return fields, nil
}

func (c *Chrome) FillField(ctx context.Context, sel string, index int, value string) error {
	var ok bool
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) return false;
		el.focus();
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		el.blur();
		return true;
	})()`, sel, index, value)
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(expr, &ok)); err != nil {
		return &ElementError{Selector: sel, Message: "filling field", Cause: err}
	}
	if !ok {
		// The node list re-rendered between enumeration and write.
		return &ElementError{Selector: sel, Message: "field index gone", Stale: true}
	}
	return nil
}

func (c *Chrome) SelectFirstOption(ctx context.Context, sel string) (int, error) {
	var count int
	expr := fmt.Sprintf(`(() => {
		let n = 0;
		document.querySelectorAll(%q).forEach(el => {
			if (el.options && el.options.length > 1) {
				el.selectedIndex = 1;
				el.dispatchEvent(new Event('change', {bubbles: true}));
				n++;
			}
		});
		return n;
	})()`, sel)
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(expr, &count)); err != nil {
		return 0, &ElementError{Selector: sel, Message: "selecting options", Cause: err}
	}
	return count, nil
}

func (c *Chrome) Upload(ctx context.Context, sel, path string) error {
	err := c.run(ctx, elementTimeout, chromedp.SetUploadFiles(sel, []string{path}, chromedp.ByQuery))
	if err != nil {
		return &ElementError{Selector: sel, Message: "attaching file", Cause: err}
	}
	return nil
}

func (c *Chrome) Texts(ctx context.Context, sel string) ([]string, error) {
	var texts []string
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(el => el.textContent.trim())`, sel)
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(expr, &texts)); err != nil {
		return nil, &ElementError{Selector: sel, Message: "reading texts", Cause: err}
	}
	return texts, nil
}

func (c *Chrome) ScrollTo(ctx context.Context, fraction float64) error {
	expr := fmt.Sprintf(`window.scrollTo(0, document.body.scrollHeight * %f)`, fraction)
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(expr, nil)); err != nil {
		return &ElementError{Message: "scrolling", Cause: err}
	}
	return nil
}

func (c *Chrome) ScrollThrough(ctx context.Context) error {
	// Stepwise scroll so lazily rendered listings load, then back to the top.
	for offset := 200; offset <= 4000; offset += 200 {
		expr := fmt.Sprintf(`window.scrollTo(0, %d)`, offset)
		if err := c.run(ctx, elementTimeout,
			chromedp.Evaluate(expr, nil),
			chromedp.Sleep(100*time.Millisecond),
		); err != nil {
			return &ElementError{Message: "scrolling through page", Cause: err}
		}
	}
	if err := c.run(ctx, elementTimeout, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil)); err != nil {
		return &ElementError{Message: "scrolling back to top", Cause: err}
	}
	return nil
}
