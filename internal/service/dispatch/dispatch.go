package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/config"
	"github.com/spf13/afero"
)

const (
	serviceName = "dispatch"
)

type Prompter interface {
	Ask(question string) (string, error)
	Notify(msg string)
}

// StartFunc starts name with args and returns without waiting for it.
type StartFunc func(name string, args ...string) error

type Service struct {
	fs       afero.Fs
	cfg      config.DownloaderConfig
	home     string
	prompter Prompter
	lookPath func(file string) (string, error)
	start    StartFunc
	log      *slog.Logger
}

func NewService(cfg *config.DownloaderConfig, home string, prompter Prompter, log *slog.Logger) *Service {
	return NewServiceWithFS(afero.NewOsFs(), cfg, home, prompter, exec.LookPath, Start, log)
}

func NewServiceWithFS(fs afero.Fs, cfg *config.DownloaderConfig, home string, prompter Prompter,
	lookPath func(file string) (string, error), start StartFunc, log *slog.Logger) *Service {
	return &Service{
		fs:       fs,
		cfg:      *cfg,
		home:     home,
		prompter: prompter,
		lookPath: lookPath,
		start:    start,
		log:      log.With(slog.String("service", serviceName)),
	}
}

// Dispatch hands links to the download manager. It does not wait for the
// spawned process.
func (s *Service) Dispatch(ctx context.Context, links []string) error {
	if len(links) == 0 {
		return common.ErrNoLinks
	}

	exe, err := s.Locate(ctx)
	if err != nil {
		return err
	}

	args := make([]string, 0, len(links)+1)
	args = append(args, s.cfg.Directive)
	args = append(args, links...)

	if err := s.start(exe, args...); err != nil {
		s.log.Error("Cannot start downloader", slog.String("exe", exe), slog.Any("error", err))

		return fmt.Errorf("%w %s: %w", common.ErrSpawn, exe, err)
	}

	s.log.Info("Links dispatched", slog.String("exe", exe), slog.Int("count", len(links)))

	return nil
}

// Locate finds the downloader executable: the home directory from the
// environment first, then PATH, then the user is asked until an existing path
// is given.
func (s *Service) Locate(ctx context.Context) (string, error) {
	if s.home != "" {
		p := filepath.Join(s.home, s.cfg.Executable)
		if s.isFile(p) {
			return p, nil
		}

		s.log.Warn("Downloader not found in home directory", slog.String("path", p))
	}

	if p, err := s.lookPath(s.cfg.Executable); err == nil {
		return p, nil
	}

	question := fmt.Sprintf("Couldn't find %s. Please enter its executable's path: ", s.cfg.Executable)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		answer, err := s.prompter.Ask(question)
		if err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrNoExecutable, err)
		}

		p := strings.TrimSpace(answer)
		info, err := s.fs.Stat(p)
		if p == "" || err != nil {
			s.prompter.Notify("Path doesn't exist!")

			continue
		}

		if !info.IsDir() {
			return p, nil
		}

		if found, ok := s.search(p); ok {
			return found, nil
		}

		s.prompter.Notify(fmt.Sprintf("%s not found in %s", s.cfg.Executable, p))
	}
}

func (s *Service) isFile(p string) bool {
	info, err := s.fs.Stat(p)

	return err == nil && !info.IsDir()
}

// search looks for the executable directly inside dir, not below it.
func (s *Service) search(dir string) (string, bool) {
	p := filepath.Join(dir, s.cfg.Executable)

	return p, s.isFile(p)
}

// Start spawns the process detached from this one.
func Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}

	return cmd.Process.Release()
}
