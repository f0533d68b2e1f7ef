package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	BrowserChrome = "chrome"
	BrowserHTTP   = "http"

	defaultStorePath   = "app.dat"
	defaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	defaultVaultPhrase = "cs.rin.ru"
)

type LogLevel string

type ForumConfig struct {
	BaseURL          string `yaml:"base_url"`
	ForumID          string `yaml:"forum_id"`
	UsernameSelector string `yaml:"username_selector"`
	PasswordSelector string `yaml:"password_selector"`
	LoginSelector    string `yaml:"login_selector"`
	ResultSelector   string `yaml:"result_selector"`
	PostSelector     string `yaml:"post_selector"`
	TitleSelector    string `yaml:"title_selector"`
	AuthorSelector   string `yaml:"author_selector"`
	StoreTitle       string `yaml:"store_title_selector"`
}

type SteamConfig struct {
	StoreHost   string `yaml:"store_host"`
	MetadataURL string `yaml:"metadata_url"` // fmt template, %s is the app id
	CacheTTL    int    `yaml:"cache_ttl_minutes"`
}

type HostsConfig struct {
	Download    []string `yaml:"download"`
	Vault       []string `yaml:"vault"`
	Unsupported []string `yaml:"unsupported"`
}

type VaultConfig struct {
	Phrase          string `yaml:"phrase"`
	PasswordInput   string `yaml:"password_selector"`
	DecryptButton   string `yaml:"button_selector"`
	ContentSelector string `yaml:"content_selector"`
}

// BrowserConfig selects the page session. chrome runs scripts, http only
// handles server rendered pages.
type BrowserConfig struct {
	Engine   string `yaml:"engine"`
	Bin      string `yaml:"bin"`
	Headless bool   `yaml:"headless"`
}

type PollConfig struct {
	IntervalMillis int `yaml:"interval_ms"`
	MaxAttempts    int `yaml:"max_attempts"`
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMillis) * time.Millisecond
}

type NetworkConfig struct {
	UserAgent               string         `yaml:"user_agent"`
	RequestTimeoutMillis    int            `yaml:"request_timeout_ms"`
	DefaultIntervalMillis   int            `yaml:"default_interval_ms"`
	PerDomainIntervalMillis map[string]int `yaml:"per_domain_interval_ms"`
}

type DownloaderConfig struct {
	Executable string `yaml:"executable"`
	Directive  string `yaml:"directive"`
}

type Config struct {
	LogLevel   LogLevel         `yaml:"log_level"`
	StorePath  string           `yaml:"store_path"`
	SetupQuery string           `yaml:"setup_query"`
	RedisURL   string           `yaml:"redis_url"`
	Forum      ForumConfig      `yaml:"forum"`
	Steam      SteamConfig      `yaml:"steam"`
	Hosts      HostsConfig      `yaml:"hosts"`
	Vault      VaultConfig      `yaml:"vault"`
	Browser    BrowserConfig    `yaml:"browser"`
	Poll       PollConfig       `yaml:"poll"`
	Network    NetworkConfig    `yaml:"network"`
	Downloader DownloaderConfig `yaml:"downloader"`

	Env Env `yaml:"-"`
}

func (c *Config) SetDefaults() {
	c.LogLevel = LogLevelWarn
	c.StorePath = defaultStorePath
	c.SetupQuery = "setup"

	c.Forum = ForumConfig{
		BaseURL:          "https://cs.rin.ru/forum",
		ForumID:          "22",
		UsernameSelector: `input[name="username"]`,
		PasswordSelector: `input[name="password"]`,
		LoginSelector:    `input[name="login"]`,
		ResultSelector:   "a.topictitle",
		PostSelector:     "div.postbody",
		TitleSelector:    "#pageheader h2 a",
		AuthorSelector:   ".postauthor",
		StoreTitle:       "#appHubAppName",
	}

	c.Steam = SteamConfig{
		StoreHost:   "store.steampowered.com",
		MetadataURL: "https://api.steamcmd.net/v1/info/%s",
		CacheTTL:    60,
	}

	c.Hosts = HostsConfig{
		Download:    []string{"privatebin.rinuploads.org", "drive.google.com", "filecrypt.cc"},
		Vault:       []string{"privatebin.rinuploads.org"},
		Unsupported: []string{"filecrypt.cc"},
	}

	c.Vault = VaultConfig{
		Phrase:          defaultVaultPhrase,
		PasswordInput:   "#passworddecrypt",
		DecryptButton:   "form button.btn-success",
		ContentSelector: "#prettyprint",
	}

	c.Browser = BrowserConfig{
		Engine:   BrowserChrome,
		Headless: true,
	}

	c.Poll = PollConfig{
		IntervalMillis: 200,
		MaxAttempts:    150,
	}

	c.Network = NetworkConfig{
		UserAgent:             defaultUserAgent,
		RequestTimeoutMillis:  30000,
		DefaultIntervalMillis: 500,
	}

	c.Downloader = DownloaderConfig{
		Executable: "JDownloader2.exe",
		Directive:  "-add-link",
	}
}

// Load reads the yaml file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}

	switch c.Browser.Engine {
	case BrowserChrome, BrowserHTTP:
	default:
		return fmt.Errorf("unknown browser engine: %s", c.Browser.Engine)
	}

	if c.Poll.IntervalMillis <= 0 || c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll interval and max attempts must be positive")
	}

	if c.Downloader.Executable == "" {
		return fmt.Errorf("downloader executable must be set")
	}

	return nil
}
