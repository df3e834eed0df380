package config

import (
	"path/filepath"
)

// Fused file names inside FusionDir.
const (
	HouseholdsFused         = "hogares_fusionado.csv"
	IndividualsFused        = "individuos_fusionado.csv"
	HouseholdsFusedUpdated  = "hogares_fusionado_actualizado.csv"
	IndividualsFusedUpdated = "individuos_fusionado_actualizado.csv"
)

// GetDataFilePath returns the full path for a data file given its name
func (c *Config) GetDataFilePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(c.DataDir, filename)
}

func (c *Config) RawDir() string {
	return c.GetDataFilePath(c.Files.RawDir)
}

func (c *Config) FusionPath(name string) string {
	return filepath.Join(c.GetDataFilePath(c.Files.FusionDir), name)
}

func (c *Config) CoordinatesPath() string {
	return c.GetDataFilePath(c.Files.Coordinates)
}

func (c *Config) IncomePath() string {
	return c.GetDataFilePath(c.Files.Income)
}
