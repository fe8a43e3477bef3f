package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig            `mapstructure:"server" yaml:"server"`
	Install      InstallConfig           `mapstructure:"install" yaml:"install"`
	Fetch        FetchConfig             `mapstructure:"fetch" yaml:"fetch"`
	Queue        QueueConfig             `mapstructure:"queue" yaml:"queue"`
	Notification NotificationConfig      `mapstructure:"notification" yaml:"notification"`
	Logging      LoggingConfig           `mapstructure:"logging" yaml:"logging"`
	Vendors      map[string]VendorConfig `mapstructure:"vendors" yaml:"vendors"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// InstallConfig contains install-related configuration
type InstallConfig struct {
	BaseDir           string        `mapstructure:"base_dir" yaml:"base_dir"`         // state: database, logs, incoming downloads
	Root              string        `mapstructure:"root" yaml:"root"`                 // frameworks land in <root>/<category>/<name>
	LauncherDir       string        `mapstructure:"launcher_dir" yaml:"launcher_dir"` // where .desktop files are written
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	ConcurrentLimit   int           `mapstructure:"concurrent_limit" yaml:"concurrent_limit"`
	AutoStartWorkers  bool          `mapstructure:"auto_start_workers" yaml:"auto_start_workers"`
	CheckRequirements bool          `mapstructure:"check_requirements" yaml:"check_requirements"`
	KeepDownloads     bool          `mapstructure:"keep_downloads" yaml:"keep_downloads"`
	LockTimeout       time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
}

// IncomingDir returns the directory downloads are written to before install
func (c InstallConfig) IncomingDir() string {
	return filepath.Join(c.BaseDir, "incoming")
}

// LogsDir returns the directory for log files
func (c InstallConfig) LogsDir() string {
	return filepath.Join(c.BaseDir, "logs")
}

// LocksDir returns the directory holding per-framework lock files
func (c InstallConfig) LocksDir() string {
	return filepath.Join(c.BaseDir, "locks")
}

// InstallPath returns the install path assigned to a framework
func (c InstallConfig) InstallPath(category, name string) string {
	return filepath.Join(c.Root, category, name)
}

// FetchConfig contains vendor page fetching configuration
type FetchConfig struct {
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Attempts  uint          `mapstructure:"attempts" yaml:"attempts"`
	CacheDir  string        `mapstructure:"cache_dir" yaml:"cache_dir"` // empty keeps cached pages in memory only
	CacheTTL  time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"` // zero disables the page cache
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath    string        `mapstructure:"database_path" yaml:"database_path"`
	CheckInterval   time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
	AutoExitOnEmpty bool          `mapstructure:"auto_exit_on_empty" yaml:"auto_exit_on_empty"`
	EmptyWaitTime   time.Duration `mapstructure:"empty_wait_time" yaml:"empty_wait_time"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Method  string `mapstructure:"method" yaml:"method"` // notify-send, log
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // json, console
	OutputPath string `mapstructure:"output_path" yaml:"output_path"` // stdout, stderr, or file path
}

// VendorConfig holds the markup and layout knowledge for one vendor page.
// Keeping it in configuration turns a vendor page redesign into a config edit.
type VendorConfig struct {
	PageURL         string   `mapstructure:"page_url" yaml:"page_url"`
	LinkSelector    string   `mapstructure:"link_selector" yaml:"link_selector"`
	LinkAttr        string   `mapstructure:"link_attr" yaml:"link_attr"`
	SecondSelector  string   `mapstructure:"second_selector" yaml:"second_selector"`
	VersionSelector string   `mapstructure:"version_selector" yaml:"version_selector"`
	MirrorBase      string   `mapstructure:"mirror_base" yaml:"mirror_base"`
	DownloadURL     string   `mapstructure:"download_url" yaml:"download_url"`
	Checksum        string   `mapstructure:"checksum" yaml:"checksum"` // "<type>:<hex>", optional
	Requirements    []string `mapstructure:"requirements" yaml:"requirements"`
}

// Vendor returns the vendor record for a provider, falling back to the built-in default
func (c *Config) Vendor(name string) VendorConfig {
	if v, ok := c.Vendors[name]; ok {
		return v
	}
	return DefaultVendors()[name]
}

// DefaultVendors returns the built-in vendor records
func DefaultVendors() map[string]VendorConfig {
	return map[string]VendorConfig{
		"popcorntime": {
			PageURL:      "http://popcorntime.io",
			LinkSelector: "li.download.dl-lin-64 a",
			LinkAttr:     "href",
		},
		"drjava": {
			DownloadURL:  "http://downloads.sourceforge.net/project/drjava/1.%20DrJava%20Stable%20Releases/drjava-stable-20140826-r5761/drjava-stable-20140826-r5761.jar?r=&ts=1439498832&use_mirror=iweb",
			Requirements: []string{"openjdk-7-jdk"},
		},
		"processing": {
			PageURL:         "https://processing.org/download/",
			LinkSelector:    "a.download-{{.Tag}}",
			LinkAttr:        "href",
			SecondSelector:  "a#download-link",
			VersionSelector: "#latest-version",
		},
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8484,
		},
		Install: InstallConfig{
			BaseDir:           "$HOME/.local/share/misc-installer",
			Root:              "$HOME/.local/share/umake",
			LauncherDir:       "$HOME/.local/share/applications",
			MaxRetries:        0,
			RetryDelay:        10 * time.Second,
			ConcurrentLimit:   2,
			AutoStartWorkers:  true,
			CheckRequirements: true,
			KeepDownloads:     false,
			LockTimeout:       30 * time.Second,
		},
		Fetch: FetchConfig{
			UserAgent: "misc-installer/1.0",
			Timeout:   30 * time.Second,
			Attempts:  2,
			CacheDir:  "",
			CacheTTL:  0,
		},
		Queue: QueueConfig{
			DatabasePath:    "$HOME/.local/share/misc-installer/installs.db",
			CheckInterval:   2 * time.Second,
			AutoExitOnEmpty: false,
			EmptyWaitTime:   5 * time.Minute,
		},
		Notification: NotificationConfig{
			Enabled: true,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
		Vendors: DefaultVendors(),
	}
}
