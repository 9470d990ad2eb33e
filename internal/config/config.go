package config

import "fmt"

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Storage  StorageConfig
	Build    BuildConfig
	Log      LogConfig
	API      APIConfig
}

type ServerConfig struct {
	Port int
}

type UpstreamConfig struct {
	BaseURL string
}

type StorageConfig struct {
	DataDir string
}

type BuildConfig struct {
	FacilityTax float64
}

type LogConfig struct {
	Level string
}

type APIConfig struct {
	Token string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4310,
		},
		Upstream: UpstreamConfig{
			BaseURL: "http://localhost:4300",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Build: BuildConfig{
			FacilityTax: 0.1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/foundry/config.json, then applies FOUNDRY_* environment
// variable overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Upstream.BaseURL == "" {
		return Config{}, fmt.Errorf("missing required config: upstream base URL. Set it via FOUNDRY_UPSTREAM_BASE_URL or `foundry config set upstream.base_url <url>`")
	}

	return cfg, nil
}
