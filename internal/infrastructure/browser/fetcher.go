// Package browser drives a headless Chrome instance to retrieve rendered page
// content. Each fetch runs in its own incognito context so cookies and
// navigation history never leak between unrelated requests.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// Reason classifies a fetch failure.
type Reason string

const (
	ReasonTimeout    Reason = "timeout"
	ReasonDNSFailure Reason = "dns-failure"
	ReasonHTTPError  Reason = "http-error"
	ReasonBlocked    Reason = "blocked"
	ReasonNavigation Reason = "navigation-failure"
)

// FetchError is the typed failure surfaced by Fetch. Retry policy belongs to
// the caller; blind retries against a real browser are expensive.
type FetchError struct {
	URL    string
	Reason Reason
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s failed (%s, status %d): %v", e.URL, e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s failed (%s): %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError unwraps err into a FetchError if possible.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	ok := errors.As(err, &fe)
	return fe, ok
}

// Config holds browser configuration.
type Config struct {
	Headless    bool
	DebuggerURL string // attach to an existing Chrome instead of launching
	NavTimeout  time.Duration
}

// Result is the rendered content of a successfully fetched page.
type Result struct {
	URL   string
	Title string
	HTML  string
	Text  string
}

// Fetcher owns a shared Chrome instance and hands out isolated incognito
// contexts per fetch.
type Fetcher struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
}

// NewFetcher creates a fetcher; Chrome is launched lazily on first use.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	return &Fetcher{cfg: cfg}
}

func (f *Fetcher) ensureStarted(ctx context.Context) (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		if _, err := f.browser.Version(); err == nil {
			return f.browser, nil
		}
		log.Warn().Msg("stale browser connection detected, reconnecting")
		_ = f.browser.Close()
		f.browser = nil
	}

	controlURL := f.cfg.DebuggerURL
	if controlURL == "" {
		url, err := launcher.New().Headless(f.cfg.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	f.browser = browser
	log.Info().Bool("headless", f.cfg.Headless).Msg("browser connected")
	return browser, nil
}

// Fetch navigates to url in a fresh incognito context and returns the rendered
// content. Timeout zero falls back to the configured navigation timeout. No
// automatic retry happens here.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = f.cfg.NavTimeout
	}

	browser, err := f.ensureStarted(context.WithoutCancel(ctx))
	if err != nil {
		return nil, &FetchError{URL: url, Reason: ReasonNavigation, Err: err}
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, &FetchError{URL: url, Reason: ReasonNavigation, Err: fmt.Errorf("incognito context: %w", err)}
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{URL: url, Reason: ReasonNavigation, Err: fmt.Errorf("create page: %w", err)}
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(timeout)

	// The first response received after navigation is the document response;
	// capture it to surface non-success HTTP statuses.
	var navResponse proto.NetworkResponseReceived
	waitResponse := page.WaitEvent(&navResponse)

	if err := page.Navigate(url); err != nil {
		return nil, classifyNavError(url, err)
	}
	waitResponse()

	if err := page.WaitLoad(); err != nil {
		return nil, classifyNavError(url, err)
	}

	status := 0
	if navResponse.Response != nil {
		status = navResponse.Response.Status
	}

	html, err := page.HTML()
	if err != nil {
		return nil, classifyNavError(url, err)
	}
	title := ""
	if info, err := page.Info(); err == nil {
		title = info.Title
	}
	text := ExtractVisibleText(html)

	if status == 403 || status == 429 || looksBlocked(title, text) {
		return nil, &FetchError{URL: url, Reason: ReasonBlocked, Status: status, Err: fmt.Errorf("page appears bot-blocked")}
	}
	if status >= 400 {
		return nil, &FetchError{URL: url, Reason: ReasonHTTPError, Status: status, Err: fmt.Errorf("non-success HTTP status")}
	}

	log.Debug().
		Str("url", url).
		Int("status", status).
		Int("text_length", len(text)).
		Msg("page fetched")

	return &Result{URL: url, Title: title, HTML: html, Text: text}, nil
}

// Shutdown closes the shared browser.
func (f *Fetcher) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}

func classifyNavError(url string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{URL: url, Reason: ReasonTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return &FetchError{URL: url, Reason: ReasonTimeout, Err: err}
	case strings.Contains(msg, "err_name_not_resolved"), strings.Contains(msg, "no such host"), strings.Contains(msg, "dns"):
		return &FetchError{URL: url, Reason: ReasonDNSFailure, Err: err}
	default:
		return &FetchError{URL: url, Reason: ReasonNavigation, Err: err}
	}
}

var blockMarkers = []string{
	"just a moment",
	"verify you are human",
	"are you a robot",
	"access denied",
	"captcha",
	"attention required",
}

func looksBlocked(title, text string) bool {
	title = strings.ToLower(title)
	probe := title
	if len(text) > 0 {
		sample := text
		if len(sample) > 2048 {
			sample = sample[:2048]
		}
		probe += " " + strings.ToLower(sample)
	}
	for _, marker := range blockMarkers {
		if strings.Contains(probe, marker) {
			return true
		}
	}
	return false
}
