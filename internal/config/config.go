// Package config loads run configuration from JSON files. Fields are
// pointers so a partial file overrides only what it names; everything else
// keeps its flag or default value.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/trajectory.report/internal/experiment"
)

// RunConfig mirrors the engine and experiment parameters as optional JSON
// fields.
type RunConfig struct {
	N  *int `json:"n,omitempty"`
	RS *int `json:"rs,omitempty"`

	MaxDTWDistMeters        *int     `json:"max_dtw_dist,omitempty"`
	DTWBand                 *int     `json:"dtw_band,omitempty"`
	KBest                   *int     `json:"k,omitempty"`
	SpatialFilter           *bool    `json:"spatial_filter,omitempty"`
	SpatialRadiusMeters     *int     `json:"error_point,omitempty"`
	CompressionThreshold    *float64 `json:"compression_ratio,omitempty"`
	IncludeEntireTrajectory *bool    `json:"include_entire_trajectory,omitempty"`
}

// Load reads a RunConfig from a JSON file. Files must have a .json
// extension; partial configs are safe.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// Apply overlays the set fields onto an experiment config.
func (c *RunConfig) Apply(cfg *experiment.Config) {
	if c.N != nil {
		cfg.N = *c.N
	}
	if c.RS != nil {
		cfg.RS = *c.RS
	}
	if c.MaxDTWDistMeters != nil {
		cfg.Params.MaxDTWDistMeters = *c.MaxDTWDistMeters
	}
	if c.DTWBand != nil {
		cfg.Params.DTWBand = *c.DTWBand
	}
	if c.KBest != nil {
		cfg.Params.KBest = *c.KBest
	}
	if c.SpatialFilter != nil {
		cfg.Params.SpatialFilter = *c.SpatialFilter
	}
	if c.SpatialRadiusMeters != nil {
		cfg.Params.SpatialRadiusMeters = *c.SpatialRadiusMeters
	}
	if c.CompressionThreshold != nil {
		cfg.Params.CompressionThreshold = *c.CompressionThreshold
	}
	if c.IncludeEntireTrajectory != nil {
		cfg.Params.IncludeEntireTrajectory = *c.IncludeEntireTrajectory
	}
}
