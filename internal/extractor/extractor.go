// ABOUTME: Drives Chrome through the Discord login flow to capture a token
// ABOUTME: Network-capture first, localStorage and webpack walks as fallbacks

package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	loginURL    = "https://discord.com/login"
	channelsURL = "https://discord.com/channels/@me"

	// DefaultTimeout bounds the whole login-and-capture flow. Interactive
	// runs need the headroom for a human to clear CAPTCHA or MFA prompts.
	DefaultTimeout = 2 * time.Minute

	loginPollInterval = time.Second
)

// Sentinel errors for login outcomes the caller can act on.
var (
	// ErrCaptcha means a CAPTCHA challenge blocked the headless login.
	ErrCaptcha = errors.New("captcha challenge detected, complete login interactively with `discord-mcp token`")

	// ErrMFARequired means the account needs a second factor that cannot
	// be supplied headlessly.
	ErrMFARequired = errors.New("multi-factor prompt detected, complete login interactively with `discord-mcp token`")

	// ErrNoToken means login succeeded but every strategy came up empty.
	ErrNoToken = errors.New("login completed but no token was recoverable from the browser")
)

// Extractor owns the browser configuration for token acquisition. It
// satisfies the discord.TokenSource interface.
type Extractor struct {
	headless bool
	timeout  time.Duration
	logger   *slog.Logger
}

// New returns an Extractor. A zero timeout selects DefaultTimeout.
func New(headless bool, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{headless: headless, timeout: timeout, logger: logger}
}

// capture accumulates the first Authorization header seen on the wire.
// The devtools event stream delivers on its own goroutine.
type capture struct {
	mu    sync.Mutex
	token string
}

func (c *capture) observe(headers network.Headers) {
	auth := authorizationHeader(headers)
	if auth == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		c.token = auth
	}
}

func (c *capture) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// authorizationHeader pulls the Authorization value out of a devtools
// header map, whatever its casing. Bearer-prefixed values from unrelated
// requests are not user tokens and are ignored.
func authorizationHeader(headers network.Headers) string {
	for key, value := range headers {
		if !strings.EqualFold(key, "Authorization") {
			continue
		}
		auth, ok := value.(string)
		if !ok || auth == "" || strings.HasPrefix(auth, "Bearer ") {
			continue
		}
		return auth
	}
	return ""
}

// Extract logs into Discord with the given credentials and returns the
// account token. Blocks until the token is captured, the flow fails, or
// the extractor's timeout elapses.
func (e *Extractor) Extract(ctx context.Context, email, password string) (string, error) {
	e.logger.Info("starting token extraction", "headless", e.headless, "email", email)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, e.timeout)
	defer cancelRun()

	captured := &capture{}
	chromedp.ListenTarget(runCtx, func(ev any) {
		if req, ok := ev.(*network.EventRequestWillBeSent); ok {
			captured.observe(req.Request.Headers)
		}
	})

	actions := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(loginURL),
		chromedp.Sleep(2 * time.Second),
	}
	// Without a full credential pair the form is left to the human in
	// the visible browser window; the login wait below covers both paths.
	autofill := canAutofill(email, password)
	if autofill {
		actions = append(actions,
			chromedp.SendKeys(`input[name="email"]`, email, chromedp.ByQuery),
			chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
			chromedp.Sleep(time.Second),
			chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		)
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return "", fmt.Errorf("driving login page: %w", err)
	}
	if autofill {
		e.logger.Debug("login form submitted")
	} else {
		e.logger.Info("no credentials configured, waiting for manual login")
	}

	if err := e.waitForLogin(runCtx); err != nil {
		return "", err
	}

	// Let the app settle and fire its initial API requests, then make
	// sure we are on a channel view to trigger more if capture is still
	// empty.
	var location string
	if err := chromedp.Run(runCtx,
		chromedp.Sleep(3*time.Second),
		chromedp.Location(&location),
	); err != nil {
		return "", fmt.Errorf("reading post-login location: %w", err)
	}
	if captured.get() == "" && !strings.Contains(location, "/channels/") {
		if err := chromedp.Run(runCtx,
			chromedp.Navigate(channelsURL),
			chromedp.Sleep(3*time.Second),
		); err != nil {
			return "", fmt.Errorf("navigating to channels: %w", err)
		}
	}

	if token := captured.get(); token != "" {
		e.logger.Info("token captured from network traffic")
		return token, nil
	}

	e.logger.Debug("network capture empty, scanning localStorage")
	token, err := evaluateString(runCtx, localStorageJS)
	if err != nil {
		return "", fmt.Errorf("scanning localStorage: %w", err)
	}
	if token != "" {
		e.logger.Info("token recovered from localStorage")
		return token, nil
	}

	e.logger.Debug("localStorage empty, walking webpack modules")
	token, err = evaluateString(runCtx, webpackJS)
	if err != nil {
		return "", fmt.Errorf("walking webpack modules: %w", err)
	}
	if token != "" {
		e.logger.Info("token recovered from webpack modules")
		return token, nil
	}

	return "", ErrNoToken
}

// canAutofill reports whether the login form can be filled and
// submitted automatically. Anything less than a full pair means the
// human completes login themselves.
func canAutofill(email, password string) bool {
	return email != "" && password != ""
}

// loginProbe is the page state sampled each poll tick.
type loginProbe struct {
	Href    string `json:"href"`
	Captcha bool   `json:"captcha"`
	MFA     bool   `json:"mfa"`
}

// evalLoginProbe classifies a probe: done reports a completed login.
// CAPTCHA and MFA terminate headless runs; interactively they just mean
// keep waiting while the user deals with the prompt.
func evalLoginProbe(p loginProbe, headless bool) (done bool, err error) {
	if strings.Contains(p.Href, "/channels") || strings.Contains(p.Href, "/app") {
		return true, nil
	}
	if headless {
		if p.Captcha {
			return false, ErrCaptcha
		}
		if p.MFA {
			return false, ErrMFARequired
		}
	}
	return false, nil
}

// waitForLogin polls the page until the app URL is reached, a blocking
// challenge appears, or the run context expires.
func (e *Extractor) waitForLogin(ctx context.Context) error {
	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("login did not complete: %w", ctx.Err())
		case <-ticker.C:
		}

		var probe loginProbe
		if err := chromedp.Run(ctx, chromedp.Evaluate(probeJS, &probe)); err != nil {
			return fmt.Errorf("probing login state: %w", err)
		}

		done, err := evalLoginProbe(probe, e.headless)
		if err != nil {
			e.logger.Error("login blocked", "href", probe.Href, "error", err)
			return err
		}
		if done {
			e.logger.Info("login completed", "href", probe.Href)
			return nil
		}
		e.logger.Debug("waiting for login", "href", probe.Href, "mfa", probe.MFA, "captcha", probe.Captcha)
	}
}

// evaluateString runs a page expression that yields a string or null.
func evaluateString(ctx context.Context, js string) (string, error) {
	var out *string
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return *out, nil
}

const probeJS = `({
	href: window.location.href,
	captcha: document.querySelector('iframe[src*="captcha"], [class*="captcha"]') !== null,
	mfa: window.location.href.includes('/verify')
		|| document.body.innerText.includes('Two-Factor')
		|| document.body.innerText.includes('Enter Code')
		|| document.body.innerText.includes('Check your email'),
})`

const localStorageJS = `(() => {
	try {
		let token = localStorage.getItem('token');
		if (token) return token.replace(/^"(.*)"$/, '$1');
		for (let i = 0; i < localStorage.length; i++) {
			const key = localStorage.key(i);
			if (key && key.includes('token')) {
				const val = localStorage.getItem(key);
				if (val && val.length > 50) {
					return val.replace(/^"(.*)"$/, '$1');
				}
			}
		}
	} catch {}
	return null;
})()`

const webpackJS = `(() => {
	try {
		if (window.webpackChunkdiscord_app) {
			const modules = window.webpackChunkdiscord_app.push([[Symbol()], {}, e => e.c]);
			for (const m in modules) {
				try {
					const mod = modules[m].exports;
					if (mod && mod.default && mod.default.getToken) {
						return mod.default.getToken();
					}
				} catch {}
			}
		}
	} catch {}
	return null;
})()`
