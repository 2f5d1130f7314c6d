package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds the client's runtime configuration.
type App struct {
	Name string `env:"APP_NAME" envDefault:"smartest-client"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	Server  Server
	Catalog Catalog
	Metrics Metrics
	Export  Export
}

// Server points at the SmarTest API.
type Server struct {
	BaseURL     string        `env:"SERVER_BASE_URL" envDefault:"http://localhost:5000"`
	HTTPTimeout time.Duration `env:"SERVER_HTTP_TIMEOUT" envDefault:"10s"`
}

// Catalog governs the background refresh of the saved-question list.
type Catalog struct {
	RefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" envDefault:"1m"`
}

// Metrics configures the optional local metrics listener. Empty address
// disables it.
type Metrics struct {
	Addr string `env:"METRICS_ADDR" envDefault:""`
}

// Export configures where the PDF export lands.
type Export struct {
	PDFPath string `env:"PDF_EXPORT_PATH" envDefault:"smartest-questions.pdf"`
}

// Load parses environment variables into the App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
