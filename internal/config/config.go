package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"attendbot/internal/cache"
	"attendbot/internal/schedule"
	"attendbot/internal/sheet"
)

// NOTE: the YAML file is the source of truth; a handful of deployment
// secrets and addresses may be overridden from the environment (or a .env
// file) after loading. See ApplyEnv.

// Environment variables consulted by ApplyEnv.
const (
	EnvListen        = "ATTENDBOT_LISTEN"
	EnvRedisAddr     = "ATTENDBOT_REDIS_ADDR"
	EnvRedisPassword = "ATTENDBOT_REDIS_PASSWORD"
	EnvMySQLDSN      = "ATTENDBOT_MYSQL_DSN"
	EnvTesting       = "ATTENDBOT_TESTING"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// LayoutConfig mirrors the spreadsheet geometry. Indices are 1-based.
type LayoutConfig struct {
	HeaderRows     int `yaml:"header_rows" validate:"min=0"`
	HeaderCols     int `yaml:"header_cols" validate:"min=0"`
	DescriptionRow int `yaml:"description_row" validate:"min=1"`
	DateRow        int `yaml:"date_row" validate:"min=1"`
	TimeRow        int `yaml:"time_row" validate:"min=1"`
	LocationRow    int `yaml:"location_row" validate:"min=1"`
	CountRow       int `yaml:"count_row" validate:"min=1"`
	UsernameCol    int `yaml:"username_col" validate:"min=1"`
	AdminCol       int `yaml:"admin_col" validate:"min=1"`

	// BlackColor marks blacked-out cells, WhiteColor regular event columns.
	BlackColor string `yaml:"black_color" validate:"hexcolor"`
	WhiteColor string `yaml:"white_color" validate:"hexcolor"`
}

type CacheConfig struct {
	// Backend is "memory" (single instance) or "redis".
	Backend string `yaml:"backend" validate:"oneof=memory redis"`

	RedisAddr     string `yaml:"redis_addr,omitempty" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty" validate:"min=0"`

	LongTTL  time.Duration `yaml:"long_ttl" validate:"gt=0"`
	ShortTTL time.Duration `yaml:"short_ttl" validate:"gt=0"`

	// ClearColumns is how many event-info column keys a cache clear removes.
	ClearColumns int `yaml:"clear_columns" validate:"min=0"`

	// ClearCron and PrewarmCron are standard 5-field cron specs; empty disables the job.
	ClearCron   string `yaml:"clear_cron"`
	PrewarmCron string `yaml:"prewarm_cron"`
}

type MySQLConfig struct {
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" validate:"min=0,max=65535"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DBName   string `yaml:"db_name,omitempty"`
}

type StorageConfig struct {
	// Backend is "memory" (seeded from SeedFile) or "mysql".
	Backend  string      `yaml:"backend" validate:"oneof=memory mysql"`
	SeedFile string      `yaml:"seed_file,omitempty" validate:"required_if=Backend memory"`
	MySQL    MySQLConfig `yaml:"mysql,omitempty"`
}

type SheetsConfig struct {
	Admin string `yaml:"admin" validate:"required"`
	// Current fixes the schedule sheet. Empty means read it from the admin sheet.
	Current string `yaml:"current,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" validate:"required"`

	// Timezone is the IANA zone the schedule's dates are written in.
	Timezone string `yaml:"timezone" validate:"required"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Testing switches cache keys into their own namespace.
	Testing bool `yaml:"testing"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`

	Layout LayoutConfig `yaml:"layout"`

	// SearchDays bounds the next-event search, today included.
	SearchDays int `yaml:"search_days" validate:"min=1,max=366"`

	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Sheets  SheetsConfig  `yaml:"sheets"`
}

func defaultLayout() LayoutConfig {
	l := schedule.DefaultLayout()
	return LayoutConfig{
		HeaderRows:     l.HeaderRows,
		HeaderCols:     l.HeaderCols,
		DescriptionRow: l.DescriptionRow,
		DateRow:        l.DateRow,
		TimeRow:        l.TimeRow,
		LocationRow:    l.LocationRow,
		CountRow:       l.CountRow,
		UsernameCol:    l.UsernameCol,
		AdminCol:       l.AdminCol,
		BlackColor:     l.BlackColor,
		WhiteColor:     l.WhiteColor,
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	opts := schedule.DefaultOptions()
	return &Config{
		Listen:     "127.0.0.1:8080",
		Timezone:   "America/New_York",
		LogLevel:   "info",
		Layout:     defaultLayout(),
		SearchDays: opts.SearchDays,
		Cache: CacheConfig{
			Backend:      "memory",
			LongTTL:      opts.LongTTL,
			ShortTTL:     opts.ShortTTL,
			ClearColumns: opts.ClearColumns,
			ClearCron:    "0 4 * * *",
			PrewarmCron:  "*/30 * * * *",
		},
		Storage: StorageConfig{
			Backend:  "memory",
			SeedFile: "workbook.yaml",
		},
		Sheets: SheetsConfig{Admin: opts.AdminSheet},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Layout == (LayoutConfig{}) {
		c.Layout = d.Layout
	}
	if c.Layout.BlackColor == "" {
		c.Layout.BlackColor = d.Layout.BlackColor
	}
	if c.Layout.WhiteColor == "" {
		c.Layout.WhiteColor = d.Layout.WhiteColor
	}
	if c.SearchDays <= 0 {
		c.SearchDays = d.SearchDays
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.LongTTL <= 0 {
		c.Cache.LongTTL = d.Cache.LongTTL
	}
	if c.Cache.ShortTTL <= 0 {
		c.Cache.ShortTTL = d.Cache.ShortTTL
	}
	if c.Cache.ClearColumns <= 0 {
		c.Cache.ClearColumns = d.Cache.ClearColumns
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Backend == "memory" && c.Storage.SeedFile == "" {
		c.Storage.SeedFile = d.Storage.SeedFile
	}
	if c.Sheets.Admin == "" {
		c.Sheets.Admin = d.Sheets.Admin
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides deployment-specific fields from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = "redis"
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv(EnvMySQLDSN); v != "" {
		c.Storage.MySQL.DSN = v
		c.Storage.Backend = "mysql"
	}
	if v := os.Getenv(EnvTesting); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTesting, err)
		}
		c.Testing = b
	}
	return nil
}

// Validate checks struct constraints plus the pieces validator tags cannot
// express (time zone, cron specs, layout consistency).
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	for name, spec := range map[string]string{"clear_cron": c.Cache.ClearCron, "prewarm_cron": c.Cache.PrewarmCron} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("cache.%s %q: %w", name, spec, err)
		}
	}
	l := c.Layout
	if l.CountRow < l.DescriptionRow {
		return errors.New("layout: count_row must not precede description_row")
	}
	for _, r := range []int{l.DateRow, l.TimeRow, l.LocationRow} {
		if r < l.DescriptionRow || r > l.CountRow {
			return errors.New("layout: event rows must lie between description_row and count_row")
		}
	}
	if c.Storage.Backend == "mysql" && c.Storage.MySQL.DSN == "" && c.Storage.MySQL.Host == "" {
		return errors.New("storage.mysql: dsn or host is required")
	}
	return nil
}

// ScheduleOptions builds the immutable schedule core options.
func (c *Config) ScheduleOptions() (schedule.Options, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return schedule.Options{}, err
	}
	opts := schedule.DefaultOptions()
	opts.Layout.HeaderRows = c.Layout.HeaderRows
	opts.Layout.HeaderCols = c.Layout.HeaderCols
	opts.Layout.DescriptionRow = c.Layout.DescriptionRow
	opts.Layout.DateRow = c.Layout.DateRow
	opts.Layout.TimeRow = c.Layout.TimeRow
	opts.Layout.LocationRow = c.Layout.LocationRow
	opts.Layout.CountRow = c.Layout.CountRow
	opts.Layout.UsernameCol = c.Layout.UsernameCol
	opts.Layout.AdminCol = c.Layout.AdminCol
	opts.Layout.BlackColor = c.Layout.BlackColor
	opts.Layout.WhiteColor = c.Layout.WhiteColor
	opts.SearchDays = c.SearchDays
	opts.LongTTL = c.Cache.LongTTL
	opts.ShortTTL = c.Cache.ShortTTL
	opts.ClearColumns = c.Cache.ClearColumns
	opts.AdminSheet = c.Sheets.Admin
	opts.CurrentSheet = c.Sheets.Current
	opts.Keys = cache.NewKeys(c.Testing)
	opts.Location = loc
	return opts, nil
}

// RedisOptions adapts the cache section for cache.NewRedis.
func (c *Config) RedisOptions() cache.RedisOptions {
	return cache.RedisOptions{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
	}
}

// MySQL adapts the storage section for sheet.OpenMySQL.
func (c *Config) MySQL() sheet.MySQLConfig {
	m := c.Storage.MySQL
	return sheet.MySQLConfig{
		DSN:      m.DSN,
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		DBName:   m.DBName,
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created if needed) and returned.
//   - Otherwise the YAML is read and defaults are normalized in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
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

	tmp, err := os.CreateTemp(dir, ".attendbot-config-*.tmp")
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
