// Package config loads service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable the service reads at startup. All variables
// are prefixed ECOSORT_ (e.g. ECOSORT_PORT).
type Config struct {
	Port      string `default:"8080"`
	DBPath    string `split_words:"true" default:"ecosort.db"`
	LogLevel  string `split_words:"true" default:"info"`
	UploadDir string `split_words:"true" default:"uploads"`

	// StaffCode gates staff registration; empty disables staff signup.
	StaffCode string `split_words:"true"`

	// Inference endpoints per category. An empty URL means no model is
	// deployed for that category and uploads for it report the model as
	// unavailable. The furniture model is not deployed yet.
	GeneralWasteModelURL string `envconfig:"GENERAL_WASTE_MODEL_URL"`
	FurnitureModelURL    string `envconfig:"FURNITURE_MODEL_URL"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("ecosort", &c); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	return c, nil
}
