package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jgivc/rinupdate/internal/adapter/session"
	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/config"
	"github.com/jgivc/rinupdate/internal/entity"
	"github.com/jgivc/rinupdate/internal/poll"
)

const (
	serviceName = "resolve"
)

var (
	hostRegexp = regexp.MustCompile(`(?i)^(?:https?://)?(?:[^@/\n]+@)?(?:www\.)?([^:/?\n]+)`)
)

type Browser interface {
	Navigate(ctx context.Context, rawURL string) error
	FindElement(selector string) (session.Element, error)
	Click(ctx context.Context, el session.Element) error
	SendKeys(el session.Element, text string) error
}

type UnsupportedHostError struct {
	Host string
	Link string
}

func (e *UnsupportedHostError) Error() string {
	return fmt.Sprintf("%s: %s, download it manually: %s", common.ErrUnsupportedHost, e.Host, e.Link)
}

func (e *UnsupportedHostError) Unwrap() error {
	return common.ErrUnsupportedHost
}

type Service struct {
	browser Browser
	hosts   map[string]entity.HostKind
	vault   config.VaultConfig
	policy  poll.Policy
	log     *slog.Logger
}

func NewService(browser Browser, hosts *config.HostsConfig, vault *config.VaultConfig, pc *config.PollConfig, log *slog.Logger) *Service {
	table := make(map[string]entity.HostKind, len(hosts.Vault)+len(hosts.Unsupported))
	for _, h := range hosts.Vault {
		table[strings.ToLower(h)] = entity.HostVault
	}
	for _, h := range hosts.Unsupported {
		table[strings.ToLower(h)] = entity.HostUnsupported
	}

	return &Service{
		browser: browser,
		hosts:   table,
		vault:   *vault,
		policy:  poll.Policy{Interval: pc.Interval(), MaxAttempts: pc.MaxAttempts},
		log:     log.With(slog.String("service", serviceName)),
	}
}

// Host returns the lower cased host of link without a leading www.
func Host(link string) (string, error) {
	m := hostRegexp.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidLink, link)
	}

	return strings.ToLower(m[1]), nil
}

// Classify looks host up in the table. Subdomains of a listed host share its
// kind, anything else is direct.
func (s *Service) Classify(host string) entity.HostKind {
	host = strings.ToLower(host)
	for {
		if kind, ok := s.hosts[host]; ok {
			return kind
		}

		i := strings.IndexByte(host, '.')
		if i < 0 {
			return entity.HostDirect
		}
		host = host[i+1:]
	}
}

// Resolve turns a chosen download link into the links to hand to the downloader.
func (s *Service) Resolve(ctx context.Context, link string) ([]string, error) {
	host, err := Host(link)
	if err != nil {
		return nil, err
	}

	kind := s.Classify(host)
	s.log.Debug("Resolve link", slog.String("host", host), slog.String("kind", kind.String()))

	switch kind {
	case entity.HostUnsupported:
		return nil, &UnsupportedHostError{Host: host, Link: link}
	case entity.HostVault:
		links, err := s.unlock(ctx, link)
		if err != nil {
			s.log.Error("Cannot unlock vault", slog.String("link", link), slog.Any("error", err))

			return nil, fmt.Errorf("cannot unlock %s: %w", link, err)
		}

		return links, nil
	default:
		return []string{link}, nil
	}
}

func (s *Service) unlock(ctx context.Context, link string) ([]string, error) {
	if err := s.browser.Navigate(ctx, link); err != nil {
		return nil, err
	}

	button, err := poll.Until(ctx, s.policy, s.find(s.vault.DecryptButton))
	if err != nil {
		return nil, fmt.Errorf("cannot find decrypt button: %w", err)
	}

	input, err := s.browser.FindElement(s.vault.PasswordInput)
	if err != nil {
		return nil, fmt.Errorf("cannot find password input: %w", err)
	}

	if err := s.browser.SendKeys(input, s.vault.Phrase); err != nil {
		return nil, fmt.Errorf("cannot type password: %w", err)
	}

	if err := s.browser.Click(ctx, button); err != nil {
		return nil, fmt.Errorf("cannot click decrypt button: %w", err)
	}

	content, err := poll.Until(ctx, s.policy, s.find(s.vault.ContentSelector))
	if err != nil {
		return nil, fmt.Errorf("cannot find paste content: %w", err)
	}

	var links []string
	for _, a := range content.FindAll("a") {
		if href, ok := a.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	}

	if len(links) == 0 {
		return nil, common.ErrNoLinks
	}

	s.log.Info("Vault unlocked", slog.String("link", link), slog.Int("count", len(links)))

	return links, nil
}

func (s *Service) find(selector string) func(ctx context.Context) (session.Element, error) {
	return func(context.Context) (session.Element, error) {
		return s.browser.FindElement(selector)
	}
}
