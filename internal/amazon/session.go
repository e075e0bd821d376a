// =============================================================================
// Firefly Amazon Reconciler - Authenticated Session
// =============================================================================
//
// Cookie-jar HTTP session handling the Amazon sign-in flow: open the start
// page, follow the sign-in link, submit the email form (with or without
// the intermediate continue step), submit the password form, and verify
// that an account marker is present afterwards.
//
// A randomized delay runs between page navigations so the traffic pattern
// stays below anti-automation thresholds. The delay is politeness only;
// nothing may rely on it for ordering.
//
// =============================================================================

package amazon

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// browserUserAgent keeps the session from being served the no-JS
// interstitial some endpoints return to unknown agents.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// Delay bounds for the politeness sleep between navigations, overridable
// via configuration (and set to zero in tests).
type DelayBounds struct {
	Min time.Duration
	Max time.Duration
}

// Session is an authenticated browsing session.
type Session struct {
	host  string
	http  *http.Client
	delay DelayBounds
	log   *zap.Logger
}

// NewSession builds an unauthenticated session for host.
func NewSession(host string, delay DelayBounds, log *zap.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Session{
		host: strings.TrimSuffix(host, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
		delay: delay,
		log:   log,
	}, nil
}

// Login walks the sign-in flow. Any failure means the session is unusable.
func (s *Session) Login(ctx context.Context, email, password string) error {
	start, err := s.GetDocument(ctx, s.host+"/?language=en_GB")
	if err != nil {
		return err
	}

	// The nav tooltip sometimes leads with Registration instead; the
	// sign-in link text is stable across both variants.
	signInHref, ok := findLink(start, "Sign in")
	if !ok {
		return fmt.Errorf("no sign-in link on start page")
	}

	signIn, err := s.GetDocument(ctx, s.resolve(signInHref))
	if err != nil {
		return err
	}

	// Email step. Some marketplaces show a continue button first and ask
	// for the password on a second page, some take both at once.
	form, err := parseForm(signIn)
	if err != nil {
		return fmt.Errorf("email form: %w", err)
	}
	form.values.Set("email", email)

	next, err := s.submit(ctx, form)
	if err != nil {
		return err
	}

	if next.Find(`input[type="password"]`).Length() > 0 {
		form, err = parseForm(next)
		if err != nil {
			return fmt.Errorf("password form: %w", err)
		}
	}
	form.values.Set("password", password)

	landing, err := s.submit(ctx, form)
	if err != nil {
		return err
	}

	if landing.Find("#nav-link-accountList").Length() == 0 {
		return fmt.Errorf("no account marker after sign-in; credentials rejected or challenge shown")
	}

	s.log.Debug("amazon session established")
	return nil
}

// Get fetches a page and returns its raw body.
func (s *Session) Get(ctx context.Context, pageURL string) (string, error) {
	s.sleep(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode)
	}

	return string(body), nil
}

// GetDocument fetches a page and parses it.
func (s *Session) GetDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

type htmlForm struct {
	action string
	values url.Values
}

// parseForm extracts the first form and its pre-filled inputs (the sign-in
// flow threads session state through hidden fields).
func parseForm(doc *goquery.Document) (*htmlForm, error) {
	form := doc.Find("form").First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("no form found")
	}

	values := url.Values{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := input.Attr("value")
		values.Set(name, value)
	})

	action, _ := form.Attr("action")
	return &htmlForm{action: action, values: values}, nil
}

func (s *Session) submit(ctx context.Context, form *htmlForm) (*goquery.Document, error) {
	s.sleep(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.resolve(form.action), strings.NewReader(form.values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST %s: status %d", form.action, resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Session) resolve(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return s.host + href
}

// sleep waits a random interval inside the delay bounds, returning early
// on context cancellation (the caller's request will then fail fast).
func (s *Session) sleep(ctx context.Context) {
	if s.delay.Max <= 0 {
		return
	}
	d := s.delay.Min
	if span := s.delay.Max - s.delay.Min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span) + 1))
	}

	s.log.Debug("sleeping between navigations", zap.Duration("duration", d))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func findLink(doc *goquery.Document, text string) (string, bool) {
	var href string
	var found bool
	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if strings.TrimSpace(link.Text()) == text {
			href, found = link.Attr("href")
			return false
		}
		return true
	})
	return href, found
}
