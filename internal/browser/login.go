package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	loginURL = "https://www.linkedin.com/login?trk=guest_homepage-basic_nav-header-signin"

	emailSelector    = `input[name='session_key']`
	passwordSelector = `input[name='session_password']`
	signInSelector   = `.btn__primary--large`

	// settleAfterLogin leaves room for the post-login redirect, and for the site
	// to decide whether it wants extra verification.
	settleAfterLogin = 10 * time.Second
)

// Login signs the operator in. Already-authenticated profiles (via UserDataDir)
// are detected and skipped. A verification challenge is returned as a
// *ChallengeError so the caller can hold the session for the operator; any
// other failure here is fatal to the session.
func (c *Chrome) Login(ctx context.Context, email, password string) error {
	c.log.Info("logging in")
	if err := c.Navigate(ctx, loginURL); err != nil {
		return err
	}

	url, err := c.Location(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(url, "feed") {
		c.log.Info("already logged in")
		return nil
	}

	err = c.run(ctx, navigateTimeout,
		chromedp.WaitReady(emailSelector, chromedp.ByQuery),
		chromedp.SendKeys(emailSelector, email, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.SendKeys(passwordSelector, password, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.Click(signInSelector, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Sleep(settleAfterLogin),
	)
	if err != nil {
		return &SessionError{Message: "submitting login form", Cause: err}
	}

	url, err = c.Location(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(url, "checkpoint") || strings.Contains(url, "challenge") {
		c.log.Warn("verification challenge detected", zap.String("url", url))
		return &ChallengeError{URL: url}
	}
	if strings.Contains(url, "login") {
		return &SessionError{Message: fmt.Sprintf("still on login page after submit (%s)", url)}
	}

	c.log.Info("login complete")
	return nil
}
