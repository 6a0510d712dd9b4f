package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/store"
)

const (
	// DefaultWebAddress is where the server listens when nothing else is set.
	DefaultWebAddress = ":9000"

	// DefaultSamplePrefix names the bundled sample volumes.
	DefaultSamplePrefix = "target"

	// DefaultSamplesDir is scanned for NetCDF volumes.
	DefaultSamplesDir = "samples"

	// DefaultShutdownDelay is the seconds in-flight requests get on shutdown.
	DefaultShutdownDelay = 5
)

// Config is the parsed TOML configuration.
type Config struct {
	Server  ServerConfig
	Logging logging.LogConfig
}

// ServerConfig is the [server] table.
type ServerConfig struct {
	HTTPAddress   string   `toml:"http_address"`
	SamplesDir    string   `toml:"samples_dir"`
	Workers       int      `toml:"workers"`
	CacheMB       int      `toml:"cache_mb"`
	LowResSize    int      `toml:"low_res_size"`
	CORSOrigins   []string `toml:"cors_origins"`
	Gzip          bool     `toml:"gzip"`
	ShutdownDelay int      `toml:"shutdown_delay"`

	// SamplePrefix selects the ids /api/health lists as available
	// samples. Empty lists every volume.
	SamplePrefix string `toml:"sample_prefix"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddress:   DefaultWebAddress,
			SamplesDir:    DefaultSamplesDir,
			CacheMB:       64,
			LowResSize:    store.DefaultPreviewSize,
			CORSOrigins:   []string{"*"},
			Gzip:          true,
			ShutdownDelay: DefaultShutdownDelay,
			SamplePrefix:  DefaultSamplePrefix,
		},
	}
}

// LoadConfig decodes the TOML file over DefaultConfig. Relative paths in the
// file are taken relative to the file's own directory.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, fmt.Errorf("no server TOML configuration file provided")
	}
	md, err := toml.DecodeFile(filename, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logging.Warningf("ignoring unknown config keys in %s: %v", filename, undecoded)
	}
	if err := cfg.convertPathsToAbsolute(filename); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) convertPathsToAbsolute(configPath string) error {
	configDir := filepath.Dir(configPath)
	for _, p := range []*string{&c.Server.SamplesDir, &c.Logging.Logfile} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(configDir, *p))
		if err != nil {
			return fmt.Errorf("converting %q to absolute path: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// StoreOptions maps the server settings to store options.
func (c ServerConfig) StoreOptions() store.Options {
	return store.Options{
		Workers:     c.Workers,
		PreviewSize: c.LowResSize,
		CacheBytes:  c.CacheMB << 20,
	}
}

// WriteExample writes the default configuration as TOML to path.
func WriteExample(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(DefaultConfig())
}
