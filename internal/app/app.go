package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jgivc/rinupdate/internal/adapter/chrome"
	"github.com/jgivc/rinupdate/internal/adapter/forum"
	"github.com/jgivc/rinupdate/internal/adapter/network"
	"github.com/jgivc/rinupdate/internal/adapter/session"
	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/config"
	"github.com/jgivc/rinupdate/internal/entity"
	"github.com/jgivc/rinupdate/internal/handler/term"
	"github.com/jgivc/rinupdate/internal/repository/metacache"
	"github.com/jgivc/rinupdate/internal/repository/version"
	"github.com/jgivc/rinupdate/internal/service/detect"
	"github.com/jgivc/rinupdate/internal/service/dispatch"
	"github.com/jgivc/rinupdate/internal/service/extract"
	"github.com/jgivc/rinupdate/internal/service/metadata"
	"github.com/jgivc/rinupdate/internal/service/resolve"
	"github.com/redis/go-redis/v9"
)

const (
	ProgramName = "rinupdate"

	pingTimeout = 3 * time.Second
)

type VersionStore interface {
	Load(path string) (*entity.AppConfig, error)
	Save(path string, cfg *entity.AppConfig) error
	Create(p version.Prompter, workDir string) (string, *entity.AppConfig, error)
}

type Forum interface {
	Login(ctx context.Context, user, password string) error
	Search(ctx context.Context, query string) (*entity.RawPost, error)
}

type MetadataResolver interface {
	ResolveAll(ctx context.Context, storeURLs []string) []entity.SteamInfo
}

type LinkResolver interface {
	Resolve(ctx context.Context, link string) ([]string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, links []string) error
}

type UI interface {
	Ask(question string) (string, error)
	Notify(msg string)
	Confirm(question string) (bool, error)
	Usage(program, setupQuery string)
	ShowInfo(res *entity.SearchResult)
	ShowUpdate(u *entity.Update)
}

// Deps are the collaborators of one run.
type Deps struct {
	Store      VersionStore
	Forum      Forum
	Extractor  *extract.Extractor
	Metadata   MetadataResolver
	Resolver   LinkResolver
	Dispatcher Dispatcher
	UI         UI
	WorkDir    string
}

type App struct {
	cfg *config.Config
	Deps
	closers []func() error
	log     *slog.Logger
}

func New(cfg *config.Config, deps Deps, log *slog.Logger) *App {
	return &App{
		cfg:  cfg,
		Deps: deps,
		log:  log,
	}
}

// NewLogger panics on an unknown level.
func NewLogger(level config.LogLevel, w io.Writer) *slog.Logger {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}

	return slog.New(slog.NewTextHandler(w, lo))
}

// Build wires the production collaborators. Close must be called when done.
func Build(cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	log := NewLogger(cfg.LogLevel, os.Stderr).With(slog.String("run_id", uuid.NewString()))

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot get working directory: %w", err)
	}

	cl, err := network.NewClient(&cfg.Network, log)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}

	var browser forum.Browser
	switch cfg.Browser.Engine {
	case config.BrowserHTTP:
		browser = session.NewHTTPSession(cl, log)
	default:
		cs := chrome.NewSession(&cfg.Browser, log)
		a.closers = append(a.closers, cs.Close)
		browser = cs
	}

	fc := forum.NewClient(browser, &cfg.Forum, &cfg.Poll, log)
	ui := term.NewHandler(in, out, term.DefaultWidth)

	var cache metadata.Cache
	if rdb := a.connectRedis(); rdb != nil {
		cache = metacache.NewMetaCacheRepository(rdb, time.Duration(cfg.Steam.CacheTTL)*time.Minute, log)
		a.closers = append(a.closers, rdb.Close)
	}

	a.Deps = Deps{
		Store:      version.NewStore(log),
		Forum:      fc,
		Extractor:  extract.NewExtractor(cfg.Steam.StoreHost, cfg.Hosts.Download),
		Metadata:   metadata.NewService(cl, fc, cache, cfg.Steam.MetadataURL, log),
		Resolver:   resolve.NewService(browser, &cfg.Hosts, &cfg.Vault, &cfg.Poll, log),
		Dispatcher: dispatch.NewService(&cfg.Downloader, cfg.Env.JDHome, ui, log),
		UI:         ui,
		WorkDir:    workDir,
	}

	return a, nil
}

// connectRedis returns nil when no cache is configured or it is unreachable.
func (a *App) connectRedis() *redis.Client {
	if a.cfg.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		a.log.Warn("Cannot parse redis url, metadata cache disabled", slog.Any("error", err))

		return nil
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		a.log.Warn("Cannot connect to redis, metadata cache disabled", slog.Any("error", err))
		rdb.Close()

		return nil
	}

	return rdb
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Error("Cannot close resource", slog.Any("error", err))
		}
	}
}

// Run performs one check. A stored app id replaces query. Link resolution and
// dispatch failures are reported to the user and do not fail the run.
func (a *App) Run(ctx context.Context, query string) error {
	stored, err := a.Store.Load(a.cfg.StorePath)
	switch {
	case err == nil:
		if stored.AppID != "" {
			query = stored.AppID
		}
	case errors.Is(err, common.ErrStoreNotFound):
		stored = nil
	default:
		return err
	}

	if query == a.cfg.SetupQuery {
		path, _, err := a.Store.Create(a.UI, a.WorkDir)
		if err != nil {
			return fmt.Errorf("cannot create app config: %w", err)
		}

		a.UI.Notify("App config saved to " + path)
		if !a.isStorePath(path) {
			a.UI.Notify(fmt.Sprintf("Run from %s or pass -store %s to check it for updates.", filepath.Dir(path), path))
		}

		return nil
	}

	if query == "" {
		a.UI.Usage(ProgramName, a.cfg.SetupQuery)

		return nil
	}

	if err := a.cfg.Env.Validate(); err != nil {
		return err
	}

	if err := a.Forum.Login(ctx, a.cfg.Env.User, a.cfg.Env.Password); err != nil {
		return fmt.Errorf("cannot login: %w", err)
	}

	post, err := a.Forum.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("cannot search: %w", err)
	}

	steamLinks, res := a.Extractor.Extract(post)
	res.SteamLinks = a.Metadata.ResolveAll(ctx, steamLinks)
	a.UI.ShowInfo(res)

	if stored == nil {
		return nil
	}

	u, ok := detect.Detect(version.Current(stored), res.DLLinks)
	if !ok {
		a.UI.Notify("No update found.")

		return nil
	}

	a.UI.ShowUpdate(u)

	yes, err := a.UI.Confirm("Download the update?")
	if err != nil {
		return err
	}

	if !yes {
		return nil
	}

	a.UI.Notify("Updating: " + detect.FormatVersion(u.To))

	if !a.download(ctx, u) {
		return nil
	}

	if err := a.Store.Save(a.cfg.StorePath, version.Apply(stored, u)); err != nil {
		return fmt.Errorf("cannot record update: %w", err)
	}

	return nil
}

// isStorePath reports whether path is where the next run looks for the app config.
func (a *App) isStorePath(path string) bool {
	return a.abs(path) == a.abs(a.cfg.StorePath)
}

func (a *App) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(a.WorkDir, path)
}

func (a *App) download(ctx context.Context, u *entity.Update) bool {
	links, err := a.Resolver.Resolve(ctx, u.Link.Link)
	if err != nil {
		a.log.Error("Cannot resolve download link", slog.String("link", u.Link.Link), slog.Any("error", err))

		var uerr *resolve.UnsupportedHostError
		if errors.As(err, &uerr) {
			a.UI.Notify(fmt.Sprintf("We don't support %s at this time, here's the link: %s", uerr.Host, uerr.Link))
		} else {
			a.UI.Notify(fmt.Sprintf("Cannot resolve %s: %s", u.Link.Link, err))
		}

		return false
	}

	if err := a.Dispatcher.Dispatch(ctx, links); err != nil {
		a.log.Error("Cannot dispatch links", slog.Any("error", err))
		a.UI.Notify(fmt.Sprintf("Cannot start the downloader: %s", err))

		return false
	}

	return true
}
