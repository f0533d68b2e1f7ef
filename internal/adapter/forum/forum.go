package forum

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jgivc/rinupdate/internal/adapter/session"
	"github.com/jgivc/rinupdate/internal/config"
	"github.com/jgivc/rinupdate/internal/entity"
	"github.com/jgivc/rinupdate/internal/poll"
)

const (
	loginPath  = "/ucp.php?mode=login"
	searchPath = "/search.php"
)

type Browser interface {
	Navigate(ctx context.Context, rawURL string) error
	CurrentURL() string
	FindElement(selector string) (session.Element, error)
	Click(ctx context.Context, el session.Element) error
	SendKeys(el session.Element, text string) error
}

// Client drives the forum pages through a browser session.
type Client struct {
	browser Browser
	cfg     config.ForumConfig
	policy  poll.Policy
	log     *slog.Logger
}

func NewClient(browser Browser, cfg *config.ForumConfig, pc *config.PollConfig, log *slog.Logger) *Client {
	return &Client{
		browser: browser,
		cfg:     *cfg,
		policy:  poll.Policy{Interval: pc.Interval(), MaxAttempts: pc.MaxAttempts},
		log:     log.With(slog.String("item", "ForumClient")),
	}
}

func (c *Client) Login(ctx context.Context, user, password string) error {
	if err := c.browser.Navigate(ctx, c.cfg.BaseURL+loginPath); err != nil {
		return fmt.Errorf("cannot open login page: %w", err)
	}

	// The login form shows up after a security check.
	userField, err := poll.Until(ctx, c.policy, func(context.Context) (session.Element, error) {
		return c.browser.FindElement(c.cfg.UsernameSelector)
	})
	if err != nil {
		return fmt.Errorf("cannot find login form: %w", err)
	}

	passField, err := c.browser.FindElement(c.cfg.PasswordSelector)
	if err != nil {
		return fmt.Errorf("cannot find password field: %w", err)
	}

	button, err := c.browser.FindElement(c.cfg.LoginSelector)
	if err != nil {
		return fmt.Errorf("cannot find login button: %w", err)
	}

	if err := c.browser.SendKeys(userField, user); err != nil {
		return fmt.Errorf("cannot enter username: %w", err)
	}

	if err := c.browser.SendKeys(passField, password); err != nil {
		return fmt.Errorf("cannot enter password: %w", err)
	}

	if err := c.browser.Click(ctx, button); err != nil {
		return fmt.Errorf("cannot log in: %w", err)
	}

	c.log.Info("Logged in", slog.String("user", user))

	return nil
}

// SearchURL builds the topic search for query restricted to the configured forum.
func (c *Client) SearchURL(query string) string {
	v := url.Values{}
	v.Set("keywords", query)
	v.Set("terms", "any")
	v.Set("author", "")
	v.Set("fid[]", c.cfg.ForumID)
	v.Set("sc", "1")
	v.Set("sf", "firstpost")
	v.Set("sk", "t")
	v.Set("sd", "d")
	v.Set("sr", "topics")
	v.Set("st", "0")
	v.Set("ch", "300")
	v.Set("t", "0")
	v.Set("submit", "Search")

	return c.cfg.BaseURL + searchPath + "?" + v.Encode()
}

// Search opens the first topic found for query and scrapes its first post.
func (c *Client) Search(ctx context.Context, query string) (*entity.RawPost, error) {
	if err := c.browser.Navigate(ctx, c.SearchURL(query)); err != nil {
		return nil, fmt.Errorf("cannot search %q: %w", query, err)
	}

	first, err := c.browser.FindElement(c.cfg.ResultSelector)
	if err != nil {
		return nil, fmt.Errorf("cannot find search result for %q: %w", query, err)
	}

	resultTitle := first.Text()
	if err := c.browser.Click(ctx, first); err != nil {
		return nil, fmt.Errorf("cannot open topic: %w", err)
	}

	// The topic may still be loading right after the click.
	post, err := poll.Until(ctx, c.policy, func(context.Context) (session.Element, error) {
		return c.browser.FindElement(c.cfg.PostSelector)
	})
	if err != nil {
		return nil, fmt.Errorf("cannot find first post: %w", err)
	}

	raw := &entity.RawPost{
		URL:    c.browser.CurrentURL(),
		Title:  c.text(c.cfg.TitleSelector),
		Author: c.text(c.cfg.AuthorSelector),
	}

	if raw.Title == "" {
		raw.Title = resultTitle
	}

	base, _ := url.Parse(raw.URL)
	for _, a := range post.FindAll("a") {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}

		raw.Anchors = append(raw.Anchors, entity.Anchor{Href: absolute(base, href), Text: a.Text()})
	}

	if imgs := post.FindAll("img"); len(imgs) > 0 {
		if src, ok := imgs[0].Attr("src"); ok {
			raw.ImageURL = absolute(base, src)
		}
	}

	c.log.Debug("Topic scraped", slog.String("url", raw.URL), slog.Int("anchors", len(raw.Anchors)))

	return raw, nil
}

// StoreTitle reads the application name from a store page.
func (c *Client) StoreTitle(ctx context.Context, storeURL string) (string, error) {
	if err := c.browser.Navigate(ctx, storeURL); err != nil {
		return "", err
	}

	el, err := c.browser.FindElement(c.cfg.StoreTitle)
	if err != nil {
		return "", err
	}

	return el.Text(), nil
}

func (c *Client) text(selector string) string {
	if selector == "" {
		return ""
	}

	el, err := c.browser.FindElement(selector)
	if err != nil {
		c.log.Debug("Element not found", slog.String("selector", selector))

		return ""
	}

	return strings.TrimSpace(el.Text())
}

func absolute(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil {
		return ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return base.ResolveReference(u).String()
}
