package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jgivc/rinupdate/internal/adapter/network"
	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/entity"
)

const (
	serviceName = "metadata"
)

var (
	appIDRegexp = regexp.MustCompile(`/app/(\d+)`)
)

type HTTPClient interface {
	Get(ctx context.Context, reqURL string) (*network.Response, error)
}

// TitleFallback reads the display title from the store page itself.
type TitleFallback interface {
	StoreTitle(ctx context.Context, storeURL string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, appID string) ([]byte, bool, error)
	Set(ctx context.Context, appID string, data []byte) error
}

type infoResponse struct {
	Data map[string]appInfo `json:"data"`
}

type appInfo struct {
	Common struct {
		Name string `json:"name"`
	} `json:"common"`
	Depots struct {
		Branches map[string]json.RawMessage `json:"branches"`
	} `json:"depots"`
}

type branchInfo struct {
	TimeUpdated json.RawMessage `json:"timeupdated"`
}

type Service struct {
	client      HTTPClient
	fallback    TitleFallback
	cache       Cache
	metadataURL string
	log         *slog.Logger
}

// NewService builds the resolver. metadataURL is a fmt template taking the app id.
// fallback and cache may be nil.
func NewService(client HTTPClient, fallback TitleFallback, cache Cache, metadataURL string, log *slog.Logger) *Service {
	return &Service{
		client:      client,
		fallback:    fallback,
		cache:       cache,
		metadataURL: metadataURL,
		log:         log.With(slog.String("service", serviceName)),
	}
}

func AppID(storeURL string) (string, error) {
	m := appIDRegexp.FindStringSubmatch(storeURL)
	if m == nil {
		return "", fmt.Errorf("%w: no app id in %s", common.ErrMalformedURL, storeURL)
	}

	return m[1], nil
}

// ResolveAll resolves every link. Entries that fail are logged and left out.
func (s *Service) ResolveAll(ctx context.Context, storeURLs []string) []entity.SteamInfo {
	infos := make([]entity.SteamInfo, 0, len(storeURLs))

	for _, u := range storeURLs {
		info, err := s.Resolve(ctx, u)
		if err != nil {
			s.log.Warn("Cannot resolve steam link", slog.String("url", u), slog.Any("error", err))

			continue
		}

		infos = append(infos, *info)
	}

	return infos
}

func (s *Service) Resolve(ctx context.Context, storeURL string) (*entity.SteamInfo, error) {
	appID, err := AppID(storeURL)
	if err != nil {
		return nil, err
	}

	data, cached, err := s.fetch(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch app %s info: %w", appID, err)
	}

	var resp infoResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: cannot unmarshal app %s info: %w", common.ErrMalformedData, appID, err)
	}

	// Cache only responses that decode.
	if !cached {
		s.store(ctx, appID, data)
	}

	app := resp.Data[appID]

	title := strings.TrimSpace(app.Common.Name)
	if title == "" {
		title = s.fallbackTitle(ctx, appID, storeURL)
	}

	return &entity.SteamInfo{
		Title:      title,
		LastUpdate: s.lastUpdate(appID, app.Depots.Branches),
		URL:        storeURL,
	}, nil
}

// fetch reports whether data came from the cache.
func (s *Service) fetch(ctx context.Context, appID string) ([]byte, bool, error) {
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, appID)
		if err != nil {
			s.log.Warn("Cannot read metadata cache", slog.String("app_id", appID), slog.Any("error", err))
		} else if ok {
			s.log.Debug("Metadata cache hit", slog.String("app_id", appID))

			return data, true, nil
		}
	}

	resp, err := s.client.Get(ctx, fmt.Sprintf(s.metadataURL, appID))
	if err != nil {
		return nil, false, err
	}

	return resp.Body, false, nil
}

func (s *Service) store(ctx context.Context, appID string, data []byte) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, appID, data); err != nil {
		s.log.Warn("Cannot write metadata cache", slog.String("app_id", appID), slog.Any("error", err))
	}
}

// lastUpdate is the latest timeupdated over all branches. Unreadable
// timestamps count as 0.
func (s *Service) lastUpdate(appID string, branches map[string]json.RawMessage) int64 {
	var latest int64

	for name, raw := range branches {
		var b branchInfo
		if err := json.Unmarshal(raw, &b); err != nil {
			s.log.Debug("Skip malformed branch", slog.String("app_id", appID), slog.String("branch", name))

			continue
		}

		ts := parseTimestamp(b.TimeUpdated)
		if ts > latest {
			latest = ts
		}
	}

	return latest
}

func (s *Service) fallbackTitle(ctx context.Context, appID, storeURL string) string {
	if s.fallback != nil {
		title, err := s.fallback.StoreTitle(ctx, storeURL)
		if err == nil && title != "" {
			return title
		}

		s.log.Warn("Cannot read title from store page", slog.String("url", storeURL), slog.Any("error", err))
	}

	return "App " + appID
}

// parseTimestamp accepts "123", 123 and 123.0.
func parseTimestamp(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		ts, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
		if err != nil {
			return 0
		}

		return ts
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return int64(num)
	}

	return 0
}
