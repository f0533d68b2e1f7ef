package chrome

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/jgivc/rinupdate/internal/adapter/session"
	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/config"
)

// Session drives a real Chrome tab, so pages that render or decrypt with
// scripts behave as they do for a user. The browser is started on the first
// navigation. Element lookups do not wait; callers poll.
type Session struct {
	cfg config.BrowserConfig

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	log *slog.Logger
}

func NewSession(cfg *config.BrowserConfig, log *slog.Logger) *Session {
	return &Session{
		cfg: *cfg,
		log: log.With(slog.String("item", "ChromeSession")),
	}
}

func (s *Session) open() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return s.page, nil
	}

	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("cannot launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()

		return nil, fmt.Errorf("cannot connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()

		return nil, fmt.Errorf("cannot open tab: %w", err)
	}

	s.launcher = l
	s.browser = browser
	s.page = page
	s.log.Debug("Browser started", slog.String("control_url", controlURL))

	return page, nil
}

func (s *Session) current() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil, fmt.Errorf("%w: no page loaded", common.ErrNotFound)
	}

	return s.page, nil
}

func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	page, err := s.open()
	if err != nil {
		return err
	}

	p := page.Context(ctx)
	if err := p.Navigate(rawURL); err != nil {
		return fmt.Errorf("cannot navigate to %s: %w", rawURL, err)
	}

	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("cannot load %s: %w", rawURL, err)
	}

	s.log.Debug("Page loaded", slog.String("url", rawURL))

	return nil
}

func (s *Session) CurrentURL() string {
	page, err := s.current()
	if err != nil {
		return ""
	}

	info, err := page.Info()
	if err != nil {
		return ""
	}

	return info.URL
}

// FindElement returns common.ErrNotFound at once when nothing matches yet.
func (s *Session) FindElement(selector string) (session.Element, error) {
	page, err := s.current()
	if err != nil {
		return nil, err
	}

	ok, el, err := page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("cannot query %s: %w", selector, err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, selector)
	}

	return &element{el: el}, nil
}

func (s *Session) Click(ctx context.Context, el session.Element) error {
	e, ok := el.(*element)
	if !ok {
		return fmt.Errorf("cannot click foreign element")
	}

	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// SendKeys types text into the focused element after its current value.
func (s *Session) SendKeys(el session.Element, text string) error {
	e, ok := el.(*element)
	if !ok {
		return fmt.Errorf("cannot send keys to foreign element")
	}

	return e.el.Input(text)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}

	err := s.browser.Close()
	s.launcher.Kill()
	s.browser, s.page, s.launcher = nil, nil, nil

	return err
}

type element struct {
	el *rod.Element
}

func (e *element) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(text)
}

func (e *element) Attr(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}

	return *v, true
}

func (e *element) FindAll(selector string) []session.Element {
	found, err := e.el.Elements(selector)
	if err != nil {
		return nil
	}

	elems := make([]session.Element, 0, len(found))
	for _, el := range found {
		elems = append(elems, &element{el: el})
	}

	return elems
}
