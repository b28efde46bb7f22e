package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxConfigFileSize bounds every JSON document this package reads.
const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig holds the tracker and segmentation parameters. Every field is
// optional; the Get* methods supply the defaults for omitted fields, so
// partial documents are safe.
type TuningConfig struct {
	// Tracker params
	MaxMissed   *int     `json:"max_missed,omitempty"`
	MaxDistance *float64 `json:"max_distance,omitempty"`

	// Candidate filter params
	MinContourArea *float64 `json:"min_contour_area,omitempty"`
	MinBoxSide     *int     `json:"min_box_side,omitempty"`
	MinAspectRatio *float64 `json:"min_aspect_ratio,omitempty"`
	MaxAspectRatio *float64 `json:"max_aspect_ratio,omitempty"`

	// Background subtraction params
	MOG2History       *int  `json:"mog2_history,omitempty"`
	MOG2VarThreshold  *int  `json:"mog2_var_threshold,omitempty"`
	MOG2DetectShadows *bool `json:"mog2_detect_shadows,omitempty"`
	MaskThreshold     *int  `json:"mask_threshold,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset, so every
// getter returns its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning configuration: %w", err)
	}
	return cfg, nil
}

// readJSONFile applies the extension and size checks shared by all loaders.
func readJSONFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.MaxMissed != nil && *c.MaxMissed < 0 {
		return fmt.Errorf("max_missed must be non-negative, got %d", *c.MaxMissed)
	}
	if c.MaxDistance != nil && *c.MaxDistance <= 0 {
		return fmt.Errorf("max_distance must be positive, got %f", *c.MaxDistance)
	}
	if c.MinContourArea != nil && *c.MinContourArea < 0 {
		return fmt.Errorf("min_contour_area must be non-negative, got %f", *c.MinContourArea)
	}
	if c.MinBoxSide != nil && *c.MinBoxSide < 0 {
		return fmt.Errorf("min_box_side must be non-negative, got %d", *c.MinBoxSide)
	}
	if c.GetMinAspectRatio() <= 0 {
		return fmt.Errorf("min_aspect_ratio must be positive, got %f", c.GetMinAspectRatio())
	}
	if c.GetMinAspectRatio() > c.GetMaxAspectRatio() {
		return fmt.Errorf("min_aspect_ratio %f exceeds max_aspect_ratio %f", c.GetMinAspectRatio(), c.GetMaxAspectRatio())
	}
	if c.MOG2History != nil && *c.MOG2History <= 0 {
		return fmt.Errorf("mog2_history must be positive, got %d", *c.MOG2History)
	}
	if c.MOG2VarThreshold != nil && *c.MOG2VarThreshold <= 0 {
		return fmt.Errorf("mog2_var_threshold must be positive, got %d", *c.MOG2VarThreshold)
	}
	if c.MaskThreshold != nil && (*c.MaskThreshold < 0 || *c.MaskThreshold > 255) {
		return fmt.Errorf("mask_threshold must be between 0 and 255, got %d", *c.MaskThreshold)
	}
	return nil
}

// GetMaxMissed returns the max_missed value or the default.
func (c *TuningConfig) GetMaxMissed() int {
	if c.MaxMissed == nil {
		return 10
	}
	return *c.MaxMissed
}

// GetMaxDistance returns the max_distance value or the default.
func (c *TuningConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return 85.0
	}
	return *c.MaxDistance
}

// GetMinContourArea returns the min_contour_area value or the default.
func (c *TuningConfig) GetMinContourArea() float64 {
	if c.MinContourArea == nil {
		return 900
	}
	return *c.MinContourArea
}

// GetMinBoxSide returns the min_box_side value or the default.
func (c *TuningConfig) GetMinBoxSide() int {
	if c.MinBoxSide == nil {
		return 25
	}
	return *c.MinBoxSide
}

// GetMinAspectRatio returns the min_aspect_ratio value or the default.
func (c *TuningConfig) GetMinAspectRatio() float64 {
	if c.MinAspectRatio == nil {
		return 0.2
	}
	return *c.MinAspectRatio
}

// GetMaxAspectRatio returns the max_aspect_ratio value or the default.
func (c *TuningConfig) GetMaxAspectRatio() float64 {
	if c.MaxAspectRatio == nil {
		return 5.0
	}
	return *c.MaxAspectRatio
}

// GetMOG2History returns the mog2_history value or the default.
func (c *TuningConfig) GetMOG2History() int {
	if c.MOG2History == nil {
		return 700
	}
	return *c.MOG2History
}

// GetMOG2VarThreshold returns the mog2_var_threshold value or the default.
func (c *TuningConfig) GetMOG2VarThreshold() int {
	if c.MOG2VarThreshold == nil {
		return 36
	}
	return *c.MOG2VarThreshold
}

// GetMOG2DetectShadows returns the mog2_detect_shadows value or the default.
func (c *TuningConfig) GetMOG2DetectShadows() bool {
	if c.MOG2DetectShadows == nil {
		return true
	}
	return *c.MOG2DetectShadows
}

// GetMaskThreshold returns the mask_threshold value or the default.
func (c *TuningConfig) GetMaskThreshold() int {
	if c.MaskThreshold == nil {
		return 200
	}
	return *c.MaskThreshold
}
