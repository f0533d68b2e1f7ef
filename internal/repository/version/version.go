package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/entity"
	"github.com/jgivc/rinupdate/internal/util"
	"github.com/spf13/afero"
)

const (
	StoreFileName = "app.dat"

	initialDate = "01.01.1970"
)

type Prompter interface {
	Ask(question string) (string, error)
}

type Store struct {
	fs  afero.Fs
	log *slog.Logger
}

func NewStore(log *slog.Logger) *Store {
	return NewStoreWithFS(afero.NewOsFs(), log)
}

func NewStoreWithFS(fs afero.Fs, log *slog.Logger) *Store {
	return &Store{
		fs:  fs,
		log: log.With(slog.String("item", "VersionStore")),
	}
}

// Load reads the record at path. A missing file is reported as
// common.ErrStoreNotFound, anything unreadable as common.ErrConfigLoad.
func (s *Store) Load(path string) (*entity.AppConfig, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrStoreNotFound
		}

		return nil, fmt.Errorf("%w: cannot read %s: %w", common.ErrConfigLoad, path, err)
	}

	var cfg entity.AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: cannot unmarshal %s: %w", common.ErrConfigLoad, path, err)
	}

	s.log.Debug("App config loaded", slog.String("path", path), slog.String("app_id", cfg.AppID))

	return &cfg, nil
}

// Save replaces the file at path as a whole: the record is written to a
// temporary file in the same directory which is then renamed over path.
func (s *Store) Save(path string, cfg *entity.AppConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal app config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create dir %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)

		return fmt.Errorf("cannot write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)

		return fmt.Errorf("cannot sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)

		return fmt.Errorf("cannot close temp file: %w", err)
	}

	if err := s.fs.Rename(tmpName, path); err != nil {
		s.fs.Remove(tmpName)

		return fmt.Errorf("cannot replace %s: %w", path, err)
	}

	s.log.Info("App config saved", slog.String("path", path))

	return nil
}

// Create asks for a new record and saves it to <install path>/app.dat, or to
// the working directory when that fails. It returns the path written.
func (s *Store) Create(p Prompter, workDir string) (string, *entity.AppConfig, error) {
	appID, err := p.Ask("Steam AppId: ")
	if err != nil {
		return "", nil, err
	}

	installPath, err := p.Ask("Absolute Path: ")
	if err != nil {
		return "", nil, err
	}

	title, err := p.Ask(`SCS Title (format "{Title} | {Last Update}", enter {Title}): `)
	if err != nil {
		return "", nil, err
	}

	cfg := &entity.AppConfig{
		AppID:           appID,
		Path:            installPath,
		LastUpdate:      0,
		LastUpdateTitle: title,
		LastUpdateStr:   initialDate,
	}

	path := filepath.Join(installPath, StoreFileName)
	if err := s.Save(path, cfg); err != nil {
		s.log.Warn("Cannot create app config in install path, using working directory",
			slog.String("path", path), slog.Any("error", err))

		path = filepath.Join(workDir, StoreFileName)
		if err := s.Save(path, cfg); err != nil {
			return "", nil, fmt.Errorf("cannot create app config: %w", err)
		}
	}

	return path, cfg, nil
}

// Current is the installed version. The instant comes from the date string,
// the numeric field is used when the date does not parse.
func Current(cfg *entity.AppConfig) entity.Version {
	lastUpdate := cfg.LastUpdate
	if epoch, err := util.DateToEpoch(cfg.LastUpdateStr); err == nil {
		lastUpdate = epoch
	}

	return entity.Version{Title: cfg.LastUpdateTitle, LastUpdate: lastUpdate}
}

// Apply returns the record describing u.To as installed.
func Apply(cfg *entity.AppConfig, u *entity.Update) *entity.AppConfig {
	next := *cfg
	next.LastUpdate = u.To.LastUpdate
	next.LastUpdateTitle = u.To.Title
	next.LastUpdateStr = util.EpochToDate(u.To.LastUpdate)

	return &next
}
