package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "bubbles.cfg.json"

// maxDimension is the largest canvas side a GIF logical screen can describe.
const maxDimension = math.MaxUint16

// CanvasConfig holds the raster, animation and field settings
type CanvasConfig struct {
	Width    int    `json:"width" mapstructure:"width"`
	Height   int    `json:"height" mapstructure:"height"`
	Frames   int    `json:"frames" mapstructure:"frames"`
	Cells    int    `json:"cells" mapstructure:"cells"`
	Seed     string `json:"seed" mapstructure:"seed"`
	Variant  string `json:"variant" mapstructure:"variant"`
	FullTurn bool   `json:"fullTurn" mapstructure:"fullTurn"`
	Workers  int    `json:"workers" mapstructure:"workers"`
}

// Validate checks the canvas can be rendered.
func (c CanvasConfig) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Width > maxDimension {
		errs = append(errs, fmt.Errorf("width must be in [1, %d], got %d", maxDimension, c.Width))
	}
	if c.Height <= 0 || c.Height > maxDimension {
		errs = append(errs, fmt.Errorf("height must be in [1, %d], got %d", maxDimension, c.Height))
	}
	if c.Frames < 1 {
		errs = append(errs, fmt.Errorf("frames must be at least 1, got %d", c.Frames))
	}
	if c.Cells < 0 {
		errs = append(errs, fmt.Errorf("cells must not be negative, got %d", c.Cells))
	}
	if _, _, err := c.ParseSeed(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseSeed returns the configured seed. ok is false when no seed is set and
// the caller should pick one.
func (c CanvasConfig) ParseSeed() (seed uint64, ok bool, err error) {
	s := strings.TrimSpace(c.Seed)
	if s == "" {
		return 0, false, nil
	}
	seed, err = strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid seed %q: %w", c.Seed, err)
	}
	return seed, true, nil
}

// OutputConfig holds output file settings
type OutputConfig struct {
	Path        string `json:"path" mapstructure:"path"`
	Format      string `json:"format" mapstructure:"format"`
	Delay       int    `json:"delay" mapstructure:"delay"`
	Dither      bool   `json:"dither" mapstructure:"dither"`
	PaletteSize int    `json:"paletteSize" mapstructure:"paletteSize"`
	TracePath   string `json:"tracePath" mapstructure:"tracePath"`
}

// GraylogConfig holds the GELF sink settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level   string        `json:"logLevel" mapstructure:"logLevel"`
	LogsDir string        `json:"logsDir" mapstructure:"logsDir"`
	Graylog GraylogConfig `json:"graylog" mapstructure:"graylog"`
}

// MemoryConfig holds in-memory/JSON run catalog settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite run catalog settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
	// DumpPath receives a snapshot of an in-memory catalog on close.
	DumpPath string `json:"dumpPath" mapstructure:"dumpPath"`
}

// PostgresConfig holds Postgres run catalog settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// DSN renders the connection string for the gorm postgres driver.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.Username, p.Password, p.Database, p.SSLMode)
}

// StorageConfig holds run catalog backend settings
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// InfluxConfig holds frame statistics export settings
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL is the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./bubblelogs")

	viper.SetDefault("canvas.width", 256)
	viper.SetDefault("canvas.height", 256)
	viper.SetDefault("canvas.frames", 30)
	viper.SetDefault("canvas.cells", 24)
	viper.SetDefault("canvas.seed", "")
	viper.SetDefault("canvas.variant", "orbit")
	viper.SetDefault("canvas.fullTurn", false)
	viper.SetDefault("canvas.workers", 0)

	viper.SetDefault("output.path", "bubbles.gif")
	viper.SetDefault("output.format", "")
	viper.SetDefault("output.delay", 0)
	viper.SetDefault("output.dither", false)
	viper.SetDefault("output.paletteSize", 256)
	viper.SetDefault("output.tracePath", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "bubbles")
	viper.SetDefault("influx.bucket", "frames")
	viper.SetDefault("influx.backupPath", "./bubblelogs/influx_backup.lp.gz")

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./runs/bubbles.db")
	viper.SetDefault("storage.sqlite.dumpPath", "./runs/bubbles_dump.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "bubbles")
	viper.SetDefault("storage.postgres.sslMode", "disable")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "bubbles")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets default values, binds BUBBLES_* environment variables and reads
// the JSON config file from configDir. Defaults and environment stay in
// effect when the file is missing; the returned error says so.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("BUBBLES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// IsNotFound reports whether err from Load only means the file was absent.
func IsNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"width":     "canvas.width",
	"height":    "canvas.height",
	"frames":    "canvas.frames",
	"num-cells": "canvas.cells",
	"seed":      "canvas.seed",
	"variant":   "canvas.variant",
	"full-turn": "canvas.fullTurn",
	"workers":   "canvas.workers",
	"out":       "output.path",
	"format":    "output.format",
	"delay":     "output.delay",
	"dither":    "output.dither",
	"trace":     "output.tracePath",
	"log-level": "logLevel",
	"storage":   "storage.type",
}

// RegisterFlags defines the command line flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP("width", "w", 256, "width of the image")
	fs.IntP("height", "H", 256, "height of the image")
	fs.IntP("frames", "f", 30, "number of animation frames")
	fs.IntP("num-cells", "n", 24, "number of cells to generate")
	fs.StringP("out", "o", "bubbles.gif", "output file (.gif or .png)")
	fs.String("seed", "", "random seed (empty picks one)")
	fs.String("variant", "orbit", "feature point motion: orbit or static")
	fs.Bool("full-turn", false, "draw ellipse rotations from a full turn")
	fs.Int("workers", 0, "goroutines per frame stage (0 uses all CPUs)")
	fs.String("format", "", "output format: gif or apng (default from extension)")
	fs.Int("delay", 0, "delay between frames in 1/100 s")
	fs.Bool("dither", false, "dither GIF frames")
	fs.String("trace", "", "write feature point trajectories as GeoJSON")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("storage", "none", "run catalog: none, memory, sqlite or postgres")
}

// BindFlags binds every flag defined by RegisterFlags to its config key.
// Flags given on the command line win over the config file.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetCanvasConfig returns the canvas configuration.
func GetCanvasConfig() CanvasConfig {
	return CanvasConfig{
		Width:    viper.GetInt("canvas.width"),
		Height:   viper.GetInt("canvas.height"),
		Frames:   viper.GetInt("canvas.frames"),
		Cells:    viper.GetInt("canvas.cells"),
		Seed:     viper.GetString("canvas.seed"),
		Variant:  viper.GetString("canvas.variant"),
		FullTurn: viper.GetBool("canvas.fullTurn"),
		Workers:  viper.GetInt("canvas.workers"),
	}
}

// GetOutputConfig returns the output configuration.
func GetOutputConfig() OutputConfig {
	return OutputConfig{
		Path:        viper.GetString("output.path"),
		Format:      viper.GetString("output.format"),
		Delay:       viper.GetInt("output.delay"),
		Dither:      viper.GetBool("output.dither"),
		PaletteSize: viper.GetInt("output.paletteSize"),
		TracePath:   viper.GetString("output.tracePath"),
	}
}

// GetLogConfig returns the logging configuration.
func GetLogConfig() LogConfig {
	return LogConfig{
		Level:   viper.GetString("logLevel"),
		LogsDir: viper.GetString("logsDir"),
		Graylog: GraylogConfig{
			Enabled: viper.GetBool("graylog.enabled"),
			Address: viper.GetString("graylog.address"),
		},
	}
}

// GetStorageConfig returns the run catalog configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:     viper.GetString("storage.sqlite.path"),
			DumpPath: viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
