package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/misc-installer-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.misc-installer")
		v.AddConfigPath("/etc/misc-installer")
	}

	v.SetEnvPrefix("MISCINSTALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnv registers the keys AutomaticEnv should see even when no config file sets them
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port",
		"install.base_dir", "install.root", "install.launcher_dir",
		"install.max_retries", "install.concurrent_limit", "install.check_requirements",
		"fetch.user_agent", "fetch.timeout", "fetch.attempts", "fetch.cache_dir", "fetch.cache_ttl",
		"queue.database_path", "queue.check_interval", "queue.auto_exit_on_empty",
		"notification.enabled", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
	} {
		v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Install.BaseDir = expandPath(config.Install.BaseDir)
	config.Install.Root = expandPath(config.Install.Root)
	config.Install.LauncherDir = expandPath(config.Install.LauncherDir)
	config.Fetch.CacheDir = expandPath(config.Fetch.CacheDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	// Vendor records replace the defaults as a whole; fill in fields a partial record left out
	defaults := domain.DefaultVendors()
	for name, vendor := range config.Vendors {
		if def, ok := defaults[name]; ok {
			config.Vendors[name] = mergeVendor(vendor, def)
		}
	}

	return config
}

func mergeVendor(v, def domain.VendorConfig) domain.VendorConfig {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&v.PageURL, def.PageURL)
	fill(&v.LinkSelector, def.LinkSelector)
	fill(&v.LinkAttr, def.LinkAttr)
	fill(&v.SecondSelector, def.SecondSelector)
	fill(&v.VersionSelector, def.VersionSelector)
	fill(&v.DownloadURL, def.DownloadURL)
	if v.Requirements == nil {
		v.Requirements = def.Requirements
	}
	return v
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Install.BaseDir == "" {
		return fmt.Errorf("install base directory not configured")
	}

	if config.Install.Root == "" {
		return fmt.Errorf("install root not configured")
	}

	if config.Install.LauncherDir == "" {
		return fmt.Errorf("launcher directory not configured")
	}

	if config.Install.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if config.Install.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}

	if config.Queue.CheckInterval <= 0 {
		return fmt.Errorf("queue check interval must be positive")
	}

	for name, vendor := range config.Vendors {
		if _, err := domain.ParseChecksum(vendor.Checksum); err != nil {
			return fmt.Errorf("vendor %s: %w", name, err)
		}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", config.Server)
	v.Set("install", config.Install)
	v.Set("fetch", config.Fetch)
	v.Set("queue", config.Queue)
	v.Set("notification", config.Notification)
	v.Set("logging", config.Logging)
	v.Set("vendors", config.Vendors)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
