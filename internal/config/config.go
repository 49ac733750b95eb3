package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/propagation-tool/internal/logging"
	"github.com/signalsfoundry/propagation-tool/internal/observability"
	"github.com/signalsfoundry/propagation-tool/model"
)

// EnvPrefix is prepended to every environment override, e.g.
// PROPAGATION_LOG_LEVEL or PROPAGATION_LINK_FREQUENCYMHZ.
const EnvPrefix = "PROPAGATION"

// ServerConfig holds listener addresses for cmd/propagation-server.
type ServerConfig struct {
	GRPCAddr    string `json:"grpcAddr" mapstructure:"grpcAddr"`
	MetricsAddr string `json:"metricsAddr" mapstructure:"metricsAddr"`
}

// StoreConfig holds run archive settings.
type StoreConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// SweepConfig tunes sweep execution.
type SweepConfig struct {
	Workers int `json:"workers" mapstructure:"workers"`
}

// LinkSettings are link parameters in operator units: MHz and variant names.
type LinkSettings struct {
	FrequencyMHz float64 `json:"frequencyMHz" mapstructure:"frequencyMHz"`
	TxPowerW     float64 `json:"txPowerW" mapstructure:"txPowerW"`
	Conductivity float64 `json:"conductivity" mapstructure:"conductivity"`
	Permittivity float64 `json:"permittivity" mapstructure:"permittivity"`
	RoughnessM   float64 `json:"roughnessM" mapstructure:"roughnessM"`
	Antenna      string  `json:"antenna" mapstructure:"antenna"`
	Polarization string  `json:"polarization" mapstructure:"polarization"`
	K            float64 `json:"k" mapstructure:"k"`
	// Ground names a catalog preset that overrides conductivity and
	// permittivity when set.
	Ground string `json:"ground" mapstructure:"ground"`
}

// Config is the full configuration shared by the CLI and the server.
type Config struct {
	Log     logging.Config              `json:"log" mapstructure:"log"`
	Server  ServerConfig                `json:"server" mapstructure:"server"`
	Tracing observability.TracingConfig `json:"tracing" mapstructure:"tracing"`
	Store   StoreConfig                 `json:"store" mapstructure:"store"`
	Sweep   SweepConfig                 `json:"sweep" mapstructure:"sweep"`
	Link    LinkSettings                `json:"link" mapstructure:"link"`
	// Grounds is an optional path to a JSON ground catalog.
	Grounds string `json:"grounds" mapstructure:"grounds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.addSource", false)

	v.SetDefault("server.grpcAddr", ":50051")
	v.SetDefault("server.metricsAddr", ":9090")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "propagation-grpc")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampleRatio", 1.0)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "propagation-runs.db")

	v.SetDefault("sweep.workers", 0)

	v.SetDefault("link.frequencyMHz", 100.0)
	v.SetDefault("link.txPowerW", 10.0)
	v.SetDefault("link.conductivity", 0.01)
	v.SetDefault("link.permittivity", 15.0)
	v.SetDefault("link.roughnessM", 0.1)
	v.SetDefault("link.antenna", "isotropic")
	v.SetDefault("link.polarization", "horizontal")
	v.SetDefault("link.k", 1.3333)
	v.SetDefault("link.ground", "")

	v.SetDefault("grounds", "")
}

// Option adjusts the viper instance before the config is decoded.
type Option func(*viper.Viper) error

// WithFlags binds command-line flags to config keys. keys maps a flag name to
// its dotted config key. Flags the user did not set fall back to the file,
// the environment, then the defaults.
func WithFlags(fs *pflag.FlagSet, keys map[string]string) Option {
	return func(v *viper.Viper) error {
		for name, key := range keys {
			f := fs.Lookup(name)
			if f == nil {
				return fmt.Errorf("unknown flag %q bound to %s", name, key)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
		return nil
	}
}

// Load reads defaults, then the optional config file at path (JSON or YAML,
// chosen by extension), then PROPAGATION_* environment overrides, then any
// flags bound through options.
func Load(path string, opts ...Option) (Config, error) {
	v := viper.New()
	setDefaults(v)
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that are not covered by model validation.
func (c Config) Validate() error {
	var errs []error
	if c.Sweep.Workers < 0 {
		errs = append(errs, fmt.Errorf("sweep.workers must be >= 0, got %d", c.Sweep.Workers))
	}
	if c.Store.Enabled && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is required when the store is enabled"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sampleRatio must be within [0,1], got %v", c.Tracing.SampleRatio))
	}
	return errors.Join(errs...)
}

// LinkConfig converts the operator-facing settings into a model.LinkConfig.
// This is the only place MHz becomes Hz.
func (s LinkSettings) LinkConfig() (model.LinkConfig, error) {
	antenna, err := model.ParseAntennaType(s.Antenna)
	if err != nil {
		return model.LinkConfig{}, err
	}
	pol, err := model.ParsePolarization(s.Polarization)
	if err != nil {
		return model.LinkConfig{}, err
	}
	return model.LinkConfig{
		FrequencyHz:       s.FrequencyMHz * 1e6,
		TxPowerW:          s.TxPowerW,
		Conductivity:      s.Conductivity,
		Permittivity:      s.Permittivity,
		RoughnessM:        s.RoughnessM,
		Antenna:           antenna,
		Polarization:      pol,
		EarthRadiusFactor: s.K,
	}, nil
}
