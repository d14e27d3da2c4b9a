package runtimeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. PRESS_DATABASE_DSN.
const EnvPrefix = "PRESS"

// Load layers configuration sources over DefaultConfig. path may be empty.
// envFiles are read with godotenv when present and never override variables
// already set in the process environment.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("press config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("press config: parse %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("press config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	present := make([]string, 0, len(files))
	for _, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		present = append(present, file)
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("press config: env files: %w", err)
	}
	return nil
}
