package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/gradient"
)

// configFileName is looked up under the XDG config directories.
var configFileName = filepath.Join("swatchpath", "config.yaml")

// FileConfig is the optional YAML configuration file. Unset fields keep their
// defaults; environment variables and flags take precedence over the file.
type FileConfig struct {
	Estimator        string   `yaml:"estimator"`
	Exclude          []string `yaml:"exclude"`
	MinTextureSize   int      `yaml:"min_texture_size"`
	AllowTransparent bool     `yaml:"allow_transparent"`
	CacheDir         string   `yaml:"cache_dir"`
	StatsCache       string   `yaml:"stats_cache"`

	Thresholds struct {
		AverageDistance *float64 `yaml:"average_distance"`
		MedianDistance  *float64 `yaml:"median_distance"`
		SpreadDistance  *float64 `yaml:"spread_distance"`
	} `yaml:"thresholds"`

	Gradient struct {
		MaxDiff          *float64 `yaml:"max_diff"`
		DominantBoxScale *float64 `yaml:"dominant_box_scale"`
		MinStep          *float64 `yaml:"min_step"`
		DriftStrength    *float64 `yaml:"drift_strength"`
		DriftDecay       *float64 `yaml:"drift_decay"`
		InflationBase    *float64 `yaml:"inflation_base"`
		InflationSpan    *int     `yaml:"inflation_span"`
	} `yaml:"gradient"`
}

// loadFileConfig reads path, or the default config file when path is empty.
// A missing default file yields an empty config.
func loadFileConfig(path string) (*FileConfig, error) {
	if path == "" {
		found, err := xdg.SearchConfigFile(configFileName)
		if err != nil {
			return &FileConfig{}, nil
		}
		path = found
	}

	data, err := os.ReadFile(path) // #nosec G304 - User-specified config file
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parseFileConfig(data)
}

func parseFileConfig(data []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return fc, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// thresholds resolves defaults, file, then environment.
func (fc *FileConfig) thresholds() (cluster.Thresholds, error) {
	t := cluster.DefaultThresholds()
	set(&t.AverageDistance, fc.Thresholds.AverageDistance)
	set(&t.MedianDistance, fc.Thresholds.MedianDistance)
	set(&t.SpreadDistance, fc.Thresholds.SpreadDistance)
	if err := t.ApplyEnv(); err != nil {
		return t, err
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid thresholds: %w", err)
	}
	return t, nil
}

// gradientConfig resolves defaults, file, then environment.
func (fc *FileConfig) gradientConfig() (gradient.Config, error) {
	c := gradient.DefaultConfig()
	g := fc.Gradient
	set(&c.MaxDiff, g.MaxDiff)
	set(&c.DominantBoxScale, g.DominantBoxScale)
	set(&c.MinStep, g.MinStep)
	set(&c.DriftStrength, g.DriftStrength)
	set(&c.DriftDecay, g.DriftDecay)
	set(&c.InflationBase, g.InflationBase)
	set(&c.InflationSpan, g.InflationSpan)
	if err := c.ApplyEnv(); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid gradient config: %w", err)
	}
	return c, nil
}

func (fc *FileConfig) estimator() (colour.Estimator, error) {
	if fc.Estimator == "" {
		return colour.EstimatorMedian, nil
	}
	return colour.ParseEstimator(fc.Estimator)
}
