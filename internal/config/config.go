// Load .env secrets
// Load YAML sources config (+ optional *.local.yaml overrides)
// Validate config
// Provide default values

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/sources.yaml"

// Source types understood by the scraper factory
const (
	TypeGreenhouse = "greenhouse"
	TypeLever      = "lever"
	TypeSerpAPI    = "serpapi"
	TypeSearchAPI  = "searchapi"
	TypeLinkedIn   = "linkedin"
)

var ErrNoSources = errors.New("no sources configured")

var (
	defaultTitleKeywords    = []string{"data scientist"}
	defaultLocationKeywords = []string{
		"israel", "tel aviv", "tel-aviv", "jerusalem", "haifa",
		"herzliya", "ra'anana", "beer sheva", "be'er sheva",
	}
)

type Config struct {
	Archive   ArchiveConfig   `yaml:"archive"`
	Filter    FilterConfig    `yaml:"filter"`
	Sources   []SourceConfig  `yaml:"sources"`
	Storage   StorageConfig   `yaml:"storage"`
	Run       RunConfig       `yaml:"run"`
	HTTP      HTTPConfig      `yaml:"http"`
	Notify    NotifyConfig    `yaml:"notify"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Dashboard DashboardConfig `yaml:"dashboard"`

	//Secrets, from env only
	SerpAPIKey       string `yaml:"-"`
	SearchAPIKey     string `yaml:"-"`
	LinkedInEmail    string `yaml:"-"`
	LinkedInPassword string `yaml:"-"`
	DatabaseURL      string `yaml:"-"`
}

type ArchiveConfig struct {
	Path string `yaml:"path"`
	// Local=false means the archive lives only in remote storage
	Local *bool `yaml:"local"`
}

type FilterConfig struct {
	TitleKeywords    []string `yaml:"title_keywords"`
	LocationKeywords []string `yaml:"location_keywords"`
	DefaultLocation  string   `yaml:"default_location"`
}

// SourceConfig declares one source. Fields that do not apply to a type are ignored.
type SourceConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Enabled bool   `yaml:"enabled"`

	Companies []string `yaml:"companies"`
	Query     string   `yaml:"query"`
	Location  string   `yaml:"location"`

	TitleKeywords []string `yaml:"title_keywords"`
	// Prescoped skips the location heuristic; nil means "use the type default"
	Prescoped *bool `yaml:"prescoped"`

	MaxResults    int      `yaml:"max_results"`
	MaxPages      int      `yaml:"max_pages"`
	PageSize      int      `yaml:"page_size"`
	MinNewResults int      `yaml:"min_new_results"`
	TimeBudget    Duration `yaml:"time_budget"`

	//browser only
	Headless         *bool  `yaml:"headless"`
	StorageStatePath string `yaml:"storage_state_path"`
	Debug            bool   `yaml:"debug"`

	BaseURL string `yaml:"base_url"`
}

type StorageConfig struct {
	// Backend is "", "s3" or "redis"
	Backend  string `yaml:"backend"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	RedisURL string `yaml:"redis_url"`
	// Schedule is the cron expression the external scheduler uses; only for next_run_at
	Schedule string `yaml:"schedule"`
}

type RunConfig struct {
	TimeBudget Duration `yaml:"time_budget"`
}

type HTTPConfig struct {
	Timeout       Duration `yaml:"timeout"`
	Retries       int      `yaml:"retries"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	UserAgent     string   `yaml:"user_agent"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type DashboardConfig struct {
	Addr        string   `yaml:"addr"`
	FallbackURL string   `yaml:"fallback_url"`
	CacheTTL    Duration `yaml:"cache_ttl"`
}

// Duration accepts "90s", "10m" or "Nd" in YAML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// ParseDuration is time.ParseDuration plus a "7d" day syntax
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Load reads path, merges <name>.local.yaml over it when present, overlays
// secrets from the environment and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	localPath := localOverridePath(path)
	if localData, err := os.ReadFile(localPath); err == nil {
		var override Config
		if err := yaml.Unmarshal(localData, &override); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", localPath, err)
		}
		if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge %s: %w", localPath, err)
		}
		log.Printf("🔧 Merged local overrides from %s", localPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", localPath, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func localOverridePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Override with env vars
func (c *Config) applyEnv() error {
	c.SerpAPIKey = os.Getenv("SERPAPI_API_KEY")
	c.SearchAPIKey = os.Getenv("SEARCHAPI_API_KEY")
	c.LinkedInEmail = os.Getenv("LINKEDIN_EMAIL")
	c.LinkedInPassword = os.Getenv("LINKEDIN_PASSWORD")
	c.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("ARCHIVE_PATH"); v != "" {
		c.Archive.Path = v
	}
	if v := os.Getenv("OUTPUT_BUCKET"); v != "" {
		c.Storage.Bucket = v
		if c.Storage.Backend == "" {
			c.Storage.Backend = "s3"
		}
	}
	if v := os.Getenv("OUTPUT_PREFIX"); v != "" {
		c.Storage.Prefix = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv("LINKEDIN_STORAGE_STATE"); v != "" {
		for i := range c.Sources {
			if c.Sources[i].Type == TypeLinkedIn {
				c.Sources[i].StorageStatePath = v
			}
		}
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Notify.TelegramToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Notify.TelegramChatID = id
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("DASHBOARD_DATA_URL"); v != "" {
		c.Dashboard.FallbackURL = v
	}
	return nil
}

// Set default values if not set
func (c *Config) applyDefaults() {
	if c.Archive.Path == "" {
		c.Archive.Path = filepath.Join("data", "jobs.csv")
	}
	if c.Archive.Local == nil {
		c.Archive.Local = boolPtr(true)
	}
	if len(c.Filter.TitleKeywords) == 0 {
		c.Filter.TitleKeywords = defaultTitleKeywords
	}
	if len(c.Filter.LocationKeywords) == 0 {
		c.Filter.LocationKeywords = defaultLocationKeywords
	}
	if c.Filter.DefaultLocation == "" {
		c.Filter.DefaultLocation = "Israel"
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "snapshots/"
	}
	if c.HTTP.Timeout.Duration == 0 {
		c.HTTP.Timeout.Duration = 30 * time.Second
	}
	if c.HTTP.Retries == 0 {
		c.HTTP.Retries = 3
	}
	if c.HTTP.RatePerSecond == 0 {
		c.HTTP.RatePerSecond = 2
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "ds-job-scraper"
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = ":8080"
	}
	if c.Dashboard.CacheTTL.Duration == 0 {
		c.Dashboard.CacheTTL.Duration = 10 * time.Minute
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Name == "" {
			s.Name = s.Type
		}
		switch s.Type {
		case TypeSerpAPI, TypeSearchAPI, TypeLinkedIn:
			if s.Query == "" {
				s.Query = "Data Scientist"
			}
			if s.Location == "" {
				s.Location = c.Filter.DefaultLocation
			}
		}
		if s.Type == TypeLinkedIn {
			if s.MaxResults == 0 {
				s.MaxResults = 60
			}
			if s.MaxPages == 0 {
				s.MaxPages = 10
			}
			if s.Headless == nil {
				s.Headless = boolPtr(true)
			}
			if s.StorageStatePath == "" {
				s.StorageStatePath = filepath.Join("data", "linkedin_state.json")
			}
		}
	}
}

// Validate reports the first hard configuration error
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	names := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if names[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		names[s.Name] = true

		switch s.Type {
		case TypeGreenhouse, TypeLever:
			if s.Enabled && len(s.Companies) == 0 {
				return fmt.Errorf("source %q: companies is required", s.Name)
			}
		case TypeSerpAPI, TypeSearchAPI, TypeLinkedIn:
		default:
			return fmt.Errorf("source %q: unknown type %q", s.Name, s.Type)
		}
		if s.MaxResults < 0 || s.MaxPages < 0 || s.MinNewResults < 0 {
			return fmt.Errorf("source %q: limits must not be negative", s.Name)
		}
	}

	switch c.Storage.Backend {
	case "":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage: bucket is required for s3 backend")
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage: redis_url is required for redis backend")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}

	if !c.LocalArchive() && c.Storage.Backend == "" {
		return fmt.Errorf("archive: local persistence disabled and no remote storage configured")
	}

	if c.Storage.Schedule != "" {
		if _, err := cron.ParseStandard(c.Storage.Schedule); err != nil {
			return fmt.Errorf("storage: invalid schedule %q: %w", c.Storage.Schedule, err)
		}
	}
	return nil
}

// LocalArchive reports whether the archive is persisted to the local file
func (c *Config) LocalArchive() bool {
	return c.Archive.Local == nil || *c.Archive.Local
}

// EnabledSources returns enabled sources in declared order
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// IsPrescoped reports whether the location heuristic should be skipped
func (s SourceConfig) IsPrescoped() bool {
	if s.Prescoped != nil {
		return *s.Prescoped
	}
	switch s.Type {
	case TypeSerpAPI, TypeSearchAPI, TypeLinkedIn:
		return true
	}
	return false
}

func boolPtr(b bool) *bool {
	return &b
}
