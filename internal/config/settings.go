package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings file keys, shared with the YAML document
const (
	KeyListenAddr    = "listen_addr"
	KeyScratchDir    = "scratch_dir"
	KeyCookieFile    = "cookie_file"
	KeyAdminPassword = "admin_password"
	KeyContainer     = "container"
	KeyMaxParallel   = "max_parallel_downloads"
	KeyQueueCapacity = "queue_capacity"
	KeyFetchTimeout  = "fetch_timeout"
	KeyProbeTimeout  = "probe_timeout"
	KeyArtifactTTL   = "artifact_ttl"
	KeySweepInterval = "sweep_interval"
	KeyTaskRetention = "task_retention"
	KeyRateLimit     = "rate_limit"
	KeyRateBurst     = "rate_burst"
	KeyYTDLPPath     = "ytdlp_path"
	KeyAutoInstall   = "auto_install"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
)

// Environment variables
const (
	EnvAdminPassword = "YTWEB_ADMIN_PASSWORD"
	EnvConfigFile    = "YTWEB_CONFIG"
)

const (
	maxParallelLower = 1
	maxParallelUpper = 10
)

// Default values
const (
	DefaultConfigFile    = "yt-web.yaml"
	DefaultListenAddr    = ":5000"
	DefaultScratchDir    = "temp_downloads"
	DefaultCookieFile    = "cookies.txt"
	DefaultContainer     = "mp4"
	DefaultMaxParallel   = 2
	DefaultQueueCapacity = 32
	DefaultFetchTimeout  = 15 * time.Minute
	DefaultProbeTimeout  = 60 * time.Second
	DefaultArtifactTTL   = time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultTaskRetention = 30 * time.Minute
	DefaultRateLimit     = 5.0
	DefaultRateBurst     = 10
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// SupportedContainers lists the containers yt-dlp can merge into that browsers can handle
var SupportedContainers = []string{"mp4", "webm", "mkv"}

// values mirrors the YAML document. Zero values mean "use the default".
type values struct {
	ListenAddr    string        `yaml:"listen_addr"`
	ScratchDir    string        `yaml:"scratch_dir"`
	CookieFile    string        `yaml:"cookie_file"`
	AdminPassword string        `yaml:"admin_password"`
	Container     string        `yaml:"container"`
	MaxParallel   int           `yaml:"max_parallel_downloads"`
	QueueCapacity int           `yaml:"queue_capacity"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	ArtifactTTL   time.Duration `yaml:"artifact_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	TaskRetention time.Duration `yaml:"task_retention"`
	RateLimit     float64       `yaml:"rate_limit"`
	RateBurst     int           `yaml:"rate_burst"`
	YTDLPPath     string        `yaml:"ytdlp_path"`
	AutoInstall   bool          `yaml:"auto_install"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

// Settings manages service configuration. It is built once at startup and
// handed to each component constructor.
type Settings struct {
	v values
}

// NewSettings creates settings holding only defaults
func NewSettings() *Settings {
	return &Settings{}
}

// Load reads settings from a YAML file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	s := NewSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Parse(data, s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML document into s. Unknown keys are rejected.
func Parse(data []byte, s *Settings) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s.v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides secrets from the environment
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if pw, ok := lookup(EnvAdminPassword); ok {
		s.v.AdminPassword = pw
	}
}

// Validate reports configuration that cannot be served
func (s *Settings) Validate() error {
	var errs []error
	if !slices.Contains(SupportedContainers, s.GetContainer()) {
		errs = append(errs, fmt.Errorf("%s: unsupported container %q (want one of %s)",
			KeyContainer, s.v.Container, strings.Join(SupportedContainers, ", ")))
	}
	if strings.TrimSpace(s.GetScratchDir()) == "" {
		errs = append(errs, fmt.Errorf("%s: must not be empty", KeyScratchDir))
	}
	for key, d := range map[string]time.Duration{
		KeyFetchTimeout:  s.v.FetchTimeout,
		KeyProbeTimeout:  s.v.ProbeTimeout,
		KeyArtifactTTL:   s.v.ArtifactTTL,
		KeySweepInterval: s.v.SweepInterval,
		KeyTaskRetention: s.v.TaskRetention,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative, got %s", key, d))
		}
	}
	if s.v.RateLimit < 0 || s.v.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("%s/%s: must not be negative", KeyRateLimit, KeyRateBurst))
	}
	return errors.Join(errs...)
}

// GetListenAddr returns the HTTP listen address
func (s *Settings) GetListenAddr() string {
	return withDefault(s.v.ListenAddr, DefaultListenAddr)
}

// SetListenAddr sets the HTTP listen address
func (s *Settings) SetListenAddr(addr string) {
	s.v.ListenAddr = addr
}

// GetScratchDir returns the directory holding temporary artifacts
func (s *Settings) GetScratchDir() string {
	return withDefault(s.v.ScratchDir, DefaultScratchDir)
}

// SetScratchDir sets the artifact directory
func (s *Settings) SetScratchDir(dir string) {
	s.v.ScratchDir = dir
}

// GetCookieFile returns the path of the cookie store
func (s *Settings) GetCookieFile() string {
	return withDefault(s.v.CookieFile, DefaultCookieFile)
}

// SetCookieFile sets the path of the cookie store
func (s *Settings) SetCookieFile(path string) {
	s.v.CookieFile = path
}

// GetAdminPassword returns the cookie admin password; empty disables the admin endpoints
func (s *Settings) GetAdminPassword() string {
	return s.v.AdminPassword
}

// SetAdminPassword sets the cookie admin password
func (s *Settings) SetAdminPassword(pw string) {
	s.v.AdminPassword = pw
}

// GetContainer returns the accepted container type
func (s *Settings) GetContainer() string {
	return strings.ToLower(withDefault(s.v.Container, DefaultContainer))
}

// SetContainer sets the accepted container type
func (s *Settings) SetContainer(container string) {
	s.v.Container = container
}

// GetMaxParallelDownloads returns the maximum number of parallel fetches
func (s *Settings) GetMaxParallelDownloads() int {
	if s.v.MaxParallel <= 0 {
		return DefaultMaxParallel
	}
	return clamp(s.v.MaxParallel, maxParallelLower, maxParallelUpper)
}

// SetMaxParallelDownloads sets the maximum number of parallel fetches
func (s *Settings) SetMaxParallelDownloads(count int) {
	s.v.MaxParallel = clamp(count, maxParallelLower, maxParallelUpper)
}

// GetQueueCapacity returns how many fetches may wait for a worker
func (s *Settings) GetQueueCapacity() int {
	if s.v.QueueCapacity <= 0 {
		return DefaultQueueCapacity
	}
	return s.v.QueueCapacity
}

// GetFetchTimeout returns the upper bound for one fetch
func (s *Settings) GetFetchTimeout() time.Duration {
	return durationWithDefault(s.v.FetchTimeout, DefaultFetchTimeout)
}

// SetFetchTimeout sets the upper bound for one fetch
func (s *Settings) SetFetchTimeout(d time.Duration) {
	s.v.FetchTimeout = d
}

// GetProbeTimeout returns the upper bound for one probe
func (s *Settings) GetProbeTimeout() time.Duration {
	return durationWithDefault(s.v.ProbeTimeout, DefaultProbeTimeout)
}

// GetArtifactTTL returns how long an unserved artifact may stay on disk
func (s *Settings) GetArtifactTTL() time.Duration {
	return durationWithDefault(s.v.ArtifactTTL, DefaultArtifactTTL)
}

// GetSweepInterval returns how often stale artifacts are swept
func (s *Settings) GetSweepInterval() time.Duration {
	return durationWithDefault(s.v.SweepInterval, DefaultSweepInterval)
}

// GetTaskRetention returns how long finished tasks stay queryable
func (s *Settings) GetTaskRetention() time.Duration {
	return durationWithDefault(s.v.TaskRetention, DefaultTaskRetention)
}

// GetRateLimit returns the sustained request rate for POST endpoints
func (s *Settings) GetRateLimit() float64 {
	if s.v.RateLimit <= 0 {
		return DefaultRateLimit
	}
	return s.v.RateLimit
}

// GetRateBurst returns the burst size for POST endpoints
func (s *Settings) GetRateBurst() int {
	if s.v.RateBurst <= 0 {
		return DefaultRateBurst
	}
	return s.v.RateBurst
}

// GetYTDLPPath returns an explicit yt-dlp executable, empty to resolve from PATH
func (s *Settings) GetYTDLPPath() string {
	return s.v.YTDLPPath
}

// GetAutoInstall returns whether yt-dlp is downloaded on startup when missing
func (s *Settings) GetAutoInstall() bool {
	return s.v.AutoInstall
}

// GetLogLevel returns the configured log level
func (s *Settings) GetLogLevel() string {
	return withDefault(s.v.LogLevel, DefaultLogLevel)
}

// SetLogLevel sets the log level
func (s *Settings) SetLogLevel(level string) {
	s.v.LogLevel = level
}

// GetLogFormat returns the log format (text or json)
func (s *Settings) GetLogFormat() string {
	return withDefault(s.v.LogFormat, DefaultLogFormat)
}

// GetContainerOptions returns available container options
func (s *Settings) GetContainerOptions() []string {
	return slices.Clone(SupportedContainers)
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func durationWithDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
