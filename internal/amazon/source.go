// =============================================================================
// Firefly Amazon Reconciler - Order Source
// =============================================================================
//
// The scraper is cache-through: cached parsed orders are served without a
// network round trip, a successful live parse is cached (evicting any raw
// page kept from an earlier failure), and a failed parse persists the raw
// page for offline diagnosis before reporting a recoverable ScrapeError.
//
// Login is lazy: the session is established on the first order that
// actually needs a live fetch, so cache-only runs never touch Amazon.
//
// =============================================================================

package amazon

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Source yields order data for the reconciliation engine.
type Source interface {
	// ScrapeOrder fetches one order. Fails with *ScrapeError on network or
	// parse problems (recoverable) and *SetupError when no session could
	// be established (fatal).
	ScrapeOrder(ctx context.Context, orderID string) (*Order, error)
}

// Cache is the slice of the order cache the scraper needs.
// Satisfied by the cache package's backends.
type Cache interface {
	GetOrder(id string) (*Order, bool)
	PutOrder(id string, order *Order) error
	PutRaw(id string, html string) error
}

// Credentials authenticate the scraping session.
type Credentials struct {
	Email    string
	Password string
}

// Scraper is the production Source.
type Scraper struct {
	host     string
	creds    Credentials
	cache    Cache
	log      *zap.Logger
	delay    DelayBounds
	session  *Session
	loggedIn bool
}

// NewScraper builds a scraper for host. No network happens until the
// first uncached order is requested.
func NewScraper(host string, creds Credentials, store Cache, delay DelayBounds, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{
		host:  strings.TrimSuffix(host, "/"),
		creds: creds,
		cache: store,
		delay: delay,
		log:   log,
	}
}

// ScrapeOrder implements Source.
func (s *Scraper) ScrapeOrder(ctx context.Context, orderID string) (*Order, error) {
	if order, ok := s.cache.GetOrder(orderID); ok {
		s.log.Debug("loading order from cache", zap.String("order_id", orderID))
		return order, nil
	}

	if err := s.ensureSession(ctx); err != nil {
		return nil, err
	}

	orderURL := fmt.Sprintf("%s/gp/your-account/order-details?orderID=%s", s.host, orderID)
	html, err := s.session.Get(ctx, orderURL)
	if err != nil {
		return nil, &ScrapeError{OrderID: orderID, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, s.parseFailed(orderID, html, err)
	}

	order, err := ParseOrder(doc, orderURL, s.host)
	if err != nil {
		return nil, s.parseFailed(orderID, html, err)
	}

	if err := s.cache.PutOrder(orderID, order); err != nil {
		s.log.Error("caching order failed", zap.String("order_id", orderID), zap.Error(err))
	}

	return order, nil
}

// parseFailed stores the raw page in the failure slot so the markup can be
// inspected offline, then reports the recoverable error.
func (s *Scraper) parseFailed(orderID, html string, err error) error {
	s.log.Error("parsing order page failed",
		zap.String("order_id", orderID), zap.Error(err))

	if cacheErr := s.cache.PutRaw(orderID, html); cacheErr != nil {
		s.log.Error("caching raw page failed",
			zap.String("order_id", orderID), zap.Error(cacheErr))
	}

	return &ScrapeError{OrderID: orderID, Err: err}
}

func (s *Scraper) ensureSession(ctx context.Context) error {
	if s.loggedIn {
		return nil
	}

	s.log.Debug("setting up session and logging in")

	session, err := NewSession(s.host, s.delay, s.log)
	if err != nil {
		return &SetupError{Err: err}
	}
	if err := session.Login(ctx, s.creds.Email, s.creds.Password); err != nil {
		return &SetupError{Err: err}
	}

	s.session = session
	s.loggedIn = true
	return nil
}
