package config

import "go.uber.org/fx"

// NewProvider exposes the configuration to the fx graph. A non-nil cfg is
// used as-is (tests, embedded use); otherwise the environment is loaded and
// validated once, and a bad environment is fatal at startup rather than a
// latent nil downstream.
func NewProvider(cfg *Config) fx.Option {
	if cfg != nil {
		return fx.Supply(cfg)
	}

	return fx.Provide(func() (*Config, error) {
		loaded := &Config{}
		if err := LoadConfig(loaded); err != nil {
			return nil, err
		}
		return loaded, nil
	})
}
