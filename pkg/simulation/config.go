package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

// Config holds the tunables of one movable kind. It is replaced wholesale.
type Config struct {
	// Interaction radii
	NeighbourhoodRadius float64 `json:"neighbourhoodRadius" yaml:"neighbourhoodRadius"`
	RepelMinDist        float64 `json:"repelMinDist" yaml:"repelMinDist"`

	// Speed limits
	MaxVelocity float64 `json:"maxVelocity" yaml:"maxVelocity"`
	MinVelocity float64 `json:"minVelocity" yaml:"minVelocity"`

	// Steering weights
	AlignmentScale     float64 `json:"alignmentScale" yaml:"alignmentScale"`
	CohesionScale      float64 `json:"cohesionScale" yaml:"cohesionScale"`
	RepelScale         float64 `json:"repelScale" yaml:"repelScale"`
	ObstacleRepelScale float64 `json:"obstacleRepelScale" yaml:"obstacleRepelScale"`
	PredatorRepelScale float64 `json:"predatorRepelScale" yaml:"predatorRepelScale"`

	// Upper bound of the random velocity perturbation added every step
	NoiseMagnitude float64 `json:"noiseMagnitude" yaml:"noiseMagnitude"`
}

// DefaultConfig returns the documented defaults of a kind.
// Obstacles never move and get the zero Config.
func DefaultConfig(kind Kind) Config {
	switch kind {
	case KindNormal:
		return Config{
			NeighbourhoodRadius: 80,
			RepelMinDist:        50,
			MaxVelocity:         2.0,
			MinVelocity:         0.1,
			AlignmentScale:      0.1,
			CohesionScale:       0.075,
			RepelScale:          0.1,
			ObstacleRepelScale:  0.5,
			PredatorRepelScale:  5.0,
			NoiseMagnitude:      0.05,
		}
	case KindPredator:
		return Config{
			NeighbourhoodRadius: 120,
			RepelMinDist:        50,
			MaxVelocity:         1.75,
			MinVelocity:         0.1,
			AlignmentScale:      1.0,
			CohesionScale:       1.0,
			RepelScale:          0.0,
			ObstacleRepelScale:  1.0,
			PredatorRepelScale:  5.0,
			NoiseMagnitude:      0.05,
		}
	}
	return Config{}
}

// Validate reports every negative field and an inverted speed range.
// Each reported error wraps geometry.ErrInvalidArgument.
func (c Config) Validate() error {
	var err error
	fields := []struct {
		name  string
		value float64
	}{
		{"neighbourhoodRadius", c.NeighbourhoodRadius},
		{"repelMinDist", c.RepelMinDist},
		{"maxVelocity", c.MaxVelocity},
		{"minVelocity", c.MinVelocity},
		{"alignmentScale", c.AlignmentScale},
		{"cohesionScale", c.CohesionScale},
		{"repelScale", c.RepelScale},
		{"obstacleRepelScale", c.ObstacleRepelScale},
		{"predatorRepelScale", c.PredatorRepelScale},
		{"noiseMagnitude", c.NoiseMagnitude},
	}
	for _, f := range fields {
		// !(x >= 0) also catches NaN
		if !(f.value >= 0) {
			err = multierr.Append(err, fmt.Errorf("%w: %s must be non-negative, got %v", geometry.ErrInvalidArgument, f.name, f.value))
		}
	}
	if c.MinVelocity > c.MaxVelocity {
		err = multierr.Append(err, fmt.Errorf("%w: minVelocity %v is greater than maxVelocity %v", geometry.ErrInvalidArgument, c.MinVelocity, c.MaxVelocity))
	}
	return err
}

// Population is the number of entities of each kind created at start.
type Population struct {
	Normal   int `json:"normal" yaml:"normal"`
	Predator int `json:"predator" yaml:"predator"`
	Obstacle int `json:"obstacle" yaml:"obstacle"`
}

// Total is the sum over every kind.
func (p Population) Total() int {
	return p.Normal + p.Predator + p.Obstacle
}

// FileConfig is what a driver reads from disk: the scene, the starting
// population, engine options and both kind configurations.
type FileConfig struct {
	Scene          geometry.Bounds `json:"scene" yaml:"scene"`
	Population     Population      `json:"population" yaml:"population"`
	CellSize       float64         `json:"cellSize" yaml:"cellSize"`
	Seed           uint64          `json:"seed" yaml:"seed"`
	TickInterval   string          `json:"tickInterval" yaml:"tickInterval"`
	ColorDiffusion bool            `json:"colorDiffusion" yaml:"colorDiffusion"`
	Normal         Config          `json:"normal" yaml:"normal"`
	Predator       Config          `json:"predator" yaml:"predator"`
}

// DefaultFileConfig is used as-is without a file, and as the base a file is
// decoded over, so missing sections keep these values.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Scene:          DefaultSceneBounds,
		Population:     Population{Normal: 150, Predator: 3, Obstacle: 5},
		CellSize:       spatial.DefaultCellSize,
		Seed:           1,
		TickInterval:   "16ms",
		ColorDiffusion: true,
		Normal:         DefaultConfig(KindNormal),
		Predator:       DefaultConfig(KindPredator),
	}
}

// Interval parses TickInterval. An empty string means "as fast as possible".
func (fc FileConfig) Interval() (time.Duration, error) {
	if fc.TickInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(fc.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("%w: tickInterval: %v", geometry.ErrInvalidArgument, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: tickInterval must not be negative, got %s", geometry.ErrInvalidArgument, d)
	}
	return d, nil
}

// Validate checks the parts the schema cannot express.
func (fc FileConfig) Validate() error {
	err := fc.Scene.Validate()
	if !(fc.CellSize > 0) {
		err = multierr.Append(err, fmt.Errorf("%w: cellSize must be positive, got %v", geometry.ErrInvalidArgument, fc.CellSize))
	}
	if fc.Population.Normal < 0 || fc.Population.Predator < 0 || fc.Population.Obstacle < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: population counts must be non-negative", geometry.ErrInvalidArgument))
	}
	if _, ierr := fc.Interval(); ierr != nil {
		err = multierr.Append(err, ierr)
	}
	if nerr := fc.Normal.Validate(); nerr != nil {
		err = multierr.Append(err, fmt.Errorf("normal: %w", nerr))
	}
	if perr := fc.Predator.Validate(); perr != nil {
		err = multierr.Append(err, fmt.Errorf("predator: %w", perr))
	}
	return err
}

//go:embed config.schema.json
var configSchema string

// LoadFileConfig reads a JSON or YAML (by extension) configuration file,
// validates it against the embedded schema and decodes it over
// DefaultFileConfig.
func LoadFileConfig(path string) (FileConfig, error) {
	// 1. Compile Schema
	sch, err := jsonschema.CompileString("config.schema.json", configSchema)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to compile schema: %w", err)
	}

	// 2. Read Config File
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. YAML goes through JSON so both formats share one validation path
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config yaml: %w", err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return FileConfig{}, fmt.Errorf("failed to convert config yaml: %w", err)
		}
	case ".json":
	default:
		return FileConfig{}, fmt.Errorf("%w: unsupported config extension %q", geometry.ErrInvalidArgument, filepath.Ext(path))
	}

	// 4. Validate
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return FileConfig{}, fmt.Errorf("config validation failed: %w", err)
	}

	// 5. Unmarshal into Struct, over the defaults
	cfg := DefaultFileConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// NewFlockFromConfig builds an engine as described by fc and fills it with
// fc.Population. opts are applied after the ones derived from fc.
func NewFlockFromConfig(fc FileConfig, opts ...Option) (*Flock, error) {
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	base := []Option{
		WithSeed(fc.Seed),
		WithSceneBounds(fc.Scene),
		WithCellSize(fc.CellSize),
		WithColorDiffusion(fc.ColorDiffusion),
	}
	f, err := NewFlock(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := f.SetConfig(fc.Normal, KindNormal); err != nil {
		return nil, err
	}
	if err := f.SetConfig(fc.Predator, KindPredator); err != nil {
		return nil, err
	}
	f.Populate(fc.Population)
	return f, nil
}
