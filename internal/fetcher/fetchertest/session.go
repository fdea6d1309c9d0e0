// Package fetchertest provides an in-memory fetcher.Session for tests.
package fetchertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/types"
)

var _ fetcher.Session = (*Session)(nil)

// Session serves canned HTML per URL. Successive visits to the same URL
// return successive entries of Pages[url]; the last entry repeats.
type Session struct {
	// Pages maps a URL to the HTML served on each visit.
	Pages map[string][]string

	// Links maps a URL to the URL reached by clicking on that page.
	// A click on a page without an entry fails.
	Links map[string]string

	// EvalFunc answers Eval. When nil, Eval returns types.ErrUnsupported.
	EvalFunc func(js string, out any) error

	mu      sync.Mutex
	current string
	html    string
	visits  map[string]int
	history []string
	scrolls int
	closed  bool
}

// New creates a Session over pages.
func New(pages map[string][]string) *Session {
	return &Session{Pages: pages, Links: map[string]string{}}
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrSessionClosed
	}
	s.history = append(s.history, url)

	bodies, ok := s.Pages[url]
	if !ok || len(bodies) == 0 {
		return &types.NavigationError{URL: url, Err: fmt.Errorf("HTTP 404")}
	}
	if s.visits == nil {
		s.visits = make(map[string]int)
	}
	idx := min(s.visits[url], len(bodies)-1)
	s.visits[url]++

	s.current = url
	s.html = bodies[idx]
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	found, err := s.Has(ctx, selector)
	if err != nil {
		return err
	}
	if !found {
		return &types.NavigationError{URL: s.CurrentURLUnsafe(), Err: types.ErrSelectorAbsent}
	}
	return nil
}

func (s *Session) Has(_ context.Context, selector string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, types.ErrSessionClosed
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	if err != nil {
		return false, err
	}
	return doc.Find(selector).Length() > 0, nil
}

func (s *Session) HTML(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", types.ErrSessionClosed
	}
	return s.html, nil
}

func (s *Session) Eval(_ context.Context, js string, out any) error {
	if s.EvalFunc == nil {
		return types.ErrUnsupported
	}
	return s.EvalFunc(js, out)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	target, ok := s.Links[s.current]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("nothing to click for %q", selector)
	}
	return s.Navigate(ctx, target)
}

func (s *Session) CurrentURL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", types.ErrSessionClosed
	}
	return s.current, nil
}

// CurrentURLUnsafe returns the current URL ignoring the closed state.
func (s *Session) CurrentURLUnsafe() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) WaitURLChange(_ context.Context, from string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == from {
		return "", fmt.Errorf("url did not change from %s within %s", from, timeout)
	}
	return s.current, nil
}

func (s *Session) Scroll(context.Context, int, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrSessionClosed
	}
	s.scrolls++
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) Type() string { return "fake" }

// Visits returns how many times url was navigated to.
func (s *Session) Visits(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visits[url]
}

// History returns every navigated URL in order.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// Scrolls returns the number of Scroll calls.
func (s *Session) Scrolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolls
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
