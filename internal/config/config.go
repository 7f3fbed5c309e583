package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type ViewerConfig struct {
	ID         string `yaml:"id"`
	Email      string `yaml:"email"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
}

type RedisConfig struct {
	// URL enables the shared event bus. Empty keeps events in process.
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

type ICSConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	TokenFile    string `yaml:"token_file"`
	CalendarID   string `yaml:"calendar_id"`
}

type MirrorConfig struct {
	// Kind is one of "none", "ics" or "google".
	Kind   string       `yaml:"kind"`
	ICS    ICSConfig    `yaml:"ics"`
	Google GoogleConfig `yaml:"google"`
}

type Config struct {
	DatabasePath string `yaml:"database"`
	Timezone     string `yaml:"timezone"`
	LogLevel     string `yaml:"log_level"`
	// LogFile receives the JSON log. The terminal belongs to the UI, so an
	// empty value means stderr only when running headless.
	LogFile string `yaml:"log_file"`

	Viewer              ViewerConfig `yaml:"viewer"`
	PrivilegedRoles     []string     `yaml:"privileged_roles"`
	AllAccessDepartment string       `yaml:"all_access_department"`

	DebounceMillis int     `yaml:"debounce_ms"`
	BufferDays     int     `yaml:"buffer_days"`
	HourHeight     float64 `yaml:"hour_height"`
	YearListCap    int     `yaml:"year_list_cap"`
	RefreshCron    string  `yaml:"refresh"`
	ReminderBuffer int     `yaml:"reminder_buffer"`

	Redis  RedisConfig  `yaml:"redis"`
	Mirror MirrorConfig `yaml:"mirror"`
}

func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills zero values with defaults and folds unknown enum values
// back to their default.
func (c *Config) Normalize() {
	if c.DatabasePath == "" {
		c.DatabasePath = "apptcal.db"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	if c.LogFile == "" {
		c.LogFile = "apptcal.log"
	}
	if c.Viewer.ID == "" && c.Viewer.Email == "" {
		c.Viewer.ID = "1"
	}
	if c.PrivilegedRoles == nil {
		c.PrivilegedRoles = []string{"admin"}
	}
	if c.DebounceMillis <= 0 {
		c.DebounceMillis = 300
	}
	if c.BufferDays <= 0 {
		c.BufferDays = 7
	}
	if c.HourHeight <= 0 {
		c.HourHeight = 60
	}
	if c.YearListCap <= 0 {
		c.YearListCap = 3
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		c.RefreshCron = "*/5 * * * *"
	}
	if c.ReminderBuffer <= 0 {
		c.ReminderBuffer = 64
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "apptcal:appointments"
	}
	switch c.Mirror.Kind {
	case "none", "ics", "google":
	default:
		c.Mirror.Kind = "none"
	}
	if c.Mirror.Kind == "ics" && c.Mirror.ICS.Path == "" {
		c.Mirror.ICS.Path = "apptcal.ics"
	}
	if c.Mirror.Google.CalendarID == "" {
		c.Mirror.Google.CalendarID = "primary"
	}
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// Load reads the YAML file at path. A missing file is created with the
// defaults on first run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".apptcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
