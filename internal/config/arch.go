package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical architecture defaults file.
// It mirrors DefaultArchConfig and is kept in sync by a test.
const DefaultConfigPath = "config/arch.defaults.json"

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// Rounding modes for projecting points onto pixel coordinates.
const (
	RoundNearest  = "nearest"
	RoundTruncate = "truncate"
)

// Scheduling policies for distributing tile workloads over PEs.
const (
	PolicyRaster = "raster"
	PolicyLPT    = "lpt"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid architecture configuration")

// ArchConfig is the immutable architecture bundle for one simulation run.
// The JSON schema is the same one used by config/arch.defaults.json.
type ArchConfig struct {
	FrequencyMHz      float64 `json:"frequency_mhz"`
	TechScale         float64 `json:"tech_scale"`         // linear process scaling applied to logic area
	ResourcesGaussian int     `json:"resources_gaussian"` // preprocessing lanes
	ResourcesPixels   int     `json:"resources_pixels"`   // rendering lanes
	NumPEs            int     `json:"num_pes"`
	FixedGaussians    int64   `json:"fixed_gaussians"` // Gaussians pushed through preprocessing per frame
	SchedulePolicy    string  `json:"schedule_policy"`

	Frame  FrameConfig  `json:"frame"`
	Tiling TilingConfig `json:"tiling"`
	Cycles CycleConfig  `json:"cycles"`
	Area   AreaConfig   `json:"area"`
	Energy EnergyConfig `json:"energy"`
}

// FrameConfig describes the image plane and the projection camera.
type FrameConfig struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	FOVDegrees     float64 `json:"fov_degrees"`
	CameraDistance float64 `json:"camera_distance"`
	Rounding       string  `json:"rounding"`
}

// TilingConfig controls how the count map is split into PE work items.
type TilingConfig struct {
	TileWidth        int `json:"tile_width"`
	TileHeight       int `json:"tile_height"`
	DownsampleStride int `json:"downsample_stride"`
	GroupSize        int `json:"group_size"` // must be even
}

// CycleConfig holds per micro-stage cycle counts.
type CycleConfig struct {
	RenderFill  int   `json:"render_fill"`
	TileStages  []int `json:"tile_stages"`
	PixelStage  int   `json:"pixel_stage"`
	GMUDominate int   `json:"gmu_dominate"`
	GMUWeight   int   `json:"gmu_weight"`

	Conv2D3D     int `json:"conv2d_3d"`
	Conv3DR      int `json:"conv3d_r"`
	RQ           int `json:"r_q"`
	Conv2DT      int `json:"conv2d_t"`
	TJ           int `json:"t_j"`
	J3D          int `json:"j_3d"`
	ColorSH      int `json:"color_sh"`
	Position2D3D int `json:"position2d_3d"`
	SHPosition   int `json:"sh_position"`
	CameraPose   int `json:"camera_pose"`
	Overhead     int `json:"preprocess_overhead"`
}

// AreaConfig holds per-operator silicon area (um^2) and on-chip buffer sizes.
type AreaConfig struct {
	AddSub      float64 `json:"add_sub"`
	Mul         float64 `json:"mul"`
	Exp         float64 `json:"exp"`
	Div         float64 `json:"div"`
	Pow         float64 `json:"pow"`
	SRAMPer128B float64 `json:"sram_per_128b"`
	AdderTreeKB int     `json:"adder_tree_kb"`
	BufferKB    int     `json:"buffer_kb"`
	WSUKB       int     `json:"wsu_kb"`
}

// EnergyConfig holds per-operation energy (pJ) and SRAM access energy.
type EnergyConfig struct {
	AddSub float64 `json:"add_sub"`
	Mul    float64 `json:"mul"`
	Exp    float64 `json:"exp"`
	Div    float64 `json:"div"`
	Pow    float64 `json:"pow"`

	SRAMReadPerBit  float64 `json:"sram_read_per_bit"`
	SRAMWritePerBit float64 `json:"sram_write_per_bit"`
	SRAMWordBits    int     `json:"sram_word_bits"`
}

// DefaultArchConfig returns the reference RTGS design point.
func DefaultArchConfig() ArchConfig {
	return ArchConfig{
		FrequencyMHz:      500,
		TechScale:         1.6,
		ResourcesGaussian: 16,
		ResourcesPixels:   256,
		NumPEs:            16,
		FixedGaussians:    37819,
		SchedulePolicy:    PolicyRaster,
		Frame: FrameConfig{
			Width:          1752,
			Height:         1160,
			FOVDegrees:     60,
			CameraDistance: 10,
			Rounding:       RoundNearest,
		},
		Tiling: TilingConfig{
			TileWidth:        16,
			TileHeight:       16,
			DownsampleStride: 4,
			GroupSize:        2,
		},
		Cycles: CycleConfig{
			RenderFill:   18,
			TileStages:   []int{12, 8},
			PixelStage:   16,
			GMUDominate:  0,
			GMUWeight:    4,
			Conv2D3D:     5,
			Conv3DR:      5,
			RQ:           5,
			Conv2DT:      6,
			TJ:           3,
			J3D:          9,
			ColorSH:      1,
			Position2D3D: 11,
			SHPosition:   7,
			CameraPose:   5,
			Overhead:     2,
		},
		Area: AreaConfig{
			AddSub:      1360,
			Mul:         1640,
			Exp:         13600,
			Div:         13600,
			Pow:         13600,
			SRAMPer128B: 706.584,
			AdderTreeKB: 36,
			BufferKB:    161,
			WSUKB:       6,
		},
		Energy: EnergyConfig{
			AddSub:          0.5,
			Mul:             1.36,
			Exp:             5.48,
			Div:             5.48,
			Pow:             5.48,
			SRAMReadPerBit:  0.0950,
			SRAMWritePerBit: 0.092867,
			SRAMWordBits:    16,
		},
	}
}

// LoadArchConfig loads an ArchConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the JSON file retain their default values, so partial configs are safe.
func LoadArchConfig(path string) (ArchConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return ArchConfig{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return ArchConfig{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return ArchConfig{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return ArchConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseArchConfig(data)
}

// ParseArchConfig overlays JSON data onto DefaultArchConfig and validates it.
func ParseArchConfig(data []byte) (ArchConfig, error) {
	cfg := DefaultArchConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ArchConfig{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ArchConfig{}, err
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() ArchConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadArchConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable by the simulator.
func (c *ArchConfig) Validate() error {
	if c.FrequencyMHz <= 0 {
		return fmt.Errorf("%w: frequency_mhz must be positive, got %g", ErrInvalidConfig, c.FrequencyMHz)
	}
	if c.TechScale <= 0 {
		return fmt.Errorf("%w: tech_scale must be positive, got %g", ErrInvalidConfig, c.TechScale)
	}
	if c.ResourcesGaussian < 1 {
		return fmt.Errorf("%w: resources_gaussian must be at least 1, got %d", ErrInvalidConfig, c.ResourcesGaussian)
	}
	if c.ResourcesPixels < 1 {
		return fmt.Errorf("%w: resources_pixels must be at least 1, got %d", ErrInvalidConfig, c.ResourcesPixels)
	}
	if c.NumPEs < 1 {
		return fmt.Errorf("%w: num_pes must be at least 1, got %d", ErrInvalidConfig, c.NumPEs)
	}
	if c.FixedGaussians < 0 {
		return fmt.Errorf("%w: fixed_gaussians must be non-negative, got %d", ErrInvalidConfig, c.FixedGaussians)
	}
	if c.SchedulePolicy != PolicyRaster && c.SchedulePolicy != PolicyLPT {
		return fmt.Errorf("%w: schedule_policy must be %q or %q, got %q", ErrInvalidConfig, PolicyRaster, PolicyLPT, c.SchedulePolicy)
	}

	f := c.Frame
	if f.Width < 1 || f.Height < 1 {
		return fmt.Errorf("%w: frame must be at least 1x1, got %dx%d", ErrInvalidConfig, f.Width, f.Height)
	}
	if f.FOVDegrees <= 0 || f.FOVDegrees >= 180 {
		return fmt.Errorf("%w: fov_degrees must be in (0, 180), got %g", ErrInvalidConfig, f.FOVDegrees)
	}
	if f.Rounding != RoundNearest && f.Rounding != RoundTruncate {
		return fmt.Errorf("%w: rounding must be %q or %q, got %q", ErrInvalidConfig, RoundNearest, RoundTruncate, f.Rounding)
	}

	t := c.Tiling
	if t.TileWidth < 1 || t.TileHeight < 1 {
		return fmt.Errorf("%w: tile size must be at least 1x1, got %dx%d", ErrInvalidConfig, t.TileWidth, t.TileHeight)
	}
	if t.DownsampleStride < 1 {
		return fmt.Errorf("%w: downsample_stride must be at least 1, got %d", ErrInvalidConfig, t.DownsampleStride)
	}
	if t.GroupSize < 2 || t.GroupSize%2 != 0 {
		return fmt.Errorf("%w: group_size must be even and at least 2, got %d", ErrInvalidConfig, t.GroupSize)
	}

	if len(c.Cycles.TileStages) == 0 {
		return fmt.Errorf("%w: cycles.tile_stages must not be empty", ErrInvalidConfig)
	}
	if c.Energy.SRAMWordBits < 1 {
		return fmt.Errorf("%w: energy.sram_word_bits must be at least 1, got %d", ErrInvalidConfig, c.Energy.SRAMWordBits)
	}
	return nil
}

// Clone returns a deep copy so callers can derive sweep variants safely.
func (c ArchConfig) Clone() ArchConfig {
	out := c
	out.Cycles.TileStages = append([]int(nil), c.Cycles.TileStages...)
	return out
}

// JSON returns the indented JSON encoding of the configuration.
func (c ArchConfig) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
