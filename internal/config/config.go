package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the file locations and server settings.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `yaml:"data_dir"`

	Files  FilesConfig  `yaml:"files"`
	Server ServerConfig `yaml:"server"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// FilesConfig names every input and output, relative to DataDir unless absolute.
type FilesConfig struct {
	// RawDir holds one subdirectory per survey period
	RawDir    string `yaml:"raw_dir"`
	FusionDir string `yaml:"fusion_dir"`

	HouseholdPrefix  string `yaml:"household_prefix"`
	IndividualPrefix string `yaml:"individual_prefix"`

	Coordinates string `yaml:"coordinates"`
	Income      string `yaml:"income"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DefaultConfig returns the layout used by the survey distribution.
func DefaultConfig() *Config {
	return &Config{
		DataDir: filepath.Join(".", "data"),
		Files: FilesConfig{
			RawDir:           "files_eph",
			FusionDir:        "fusion_eph",
			HouseholdPrefix:  "usu_hogar_",
			IndividualPrefix: "usu_individual_",
			Coordinates:      filepath.Join("coordenadas", "aglomerados_coordenadas.json"),
			Income:           filepath.Join("ingresos", "valores-canasta-basica-alimentos-canasta-basica-total-mensual-2016.csv"),
		},
		Server:   ServerConfig{Port: "8080"},
		LogLevel: "info",
	}
}

// Load reads a YAML config over the defaults. A missing file is not an
// error; the defaults are used. DATA_DIR overrides data_dir.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parsing config %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if envDataDir := os.Getenv("DATA_DIR"); envDataDir != "" {
		c.DataDir = envDataDir
	}
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return errors.New("data_dir is required")
	case c.Files.RawDir == "" || c.Files.FusionDir == "":
		return errors.New("files.raw_dir and files.fusion_dir are required")
	case c.Files.HouseholdPrefix == "" || c.Files.IndividualPrefix == "":
		return errors.New("file prefixes are required")
	case c.Server.Port == "":
		return errors.New("server.port is required")
	}
	return nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing config %s", path)
}
