// Package telemetry writes what the flock did to CSV files, one row per
// entity per recorded tick and one row per kind per recorded tick.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

// EntityRecord is one entity at one tick.
type EntityRecord struct {
	Tick    uint64  `csv:"tick"`
	ID      uint64  `csv:"id"`
	Kind    string  `csv:"kind"`
	X       float64 `csv:"x"`
	Y       float64 `csv:"y"`
	VX      float64 `csv:"vx"`
	VY      float64 `csv:"vy"`
	Heading float64 `csv:"heading"`
	Color   float64 `csv:"color"`
}

// StatsRecord summarises one kind at one tick.
type StatsRecord struct {
	Tick uint64 `csv:"tick"`
	Kind string `csv:"kind"`
	simulation.Stats
}

// EntityRecords flattens a snapshot into rows.
func EntityRecords(s simulation.Snapshot) []EntityRecord {
	views := s.All()
	records := make([]EntityRecord, len(views))
	for i, v := range views {
		records[i] = EntityRecord{
			Tick:    s.Tick,
			ID:      v.ID,
			Kind:    v.Kind.String(),
			X:       v.Position.X,
			Y:       v.Position.Y,
			VX:      v.Velocity.X,
			VY:      v.Velocity.Y,
			Heading: v.Heading,
			Color:   v.Color,
		}
	}
	return records
}

// StatsRecords summarises every movable kind of a snapshot.
func StatsRecords(s simulation.Snapshot) []StatsRecord {
	var records []StatsRecord
	for _, k := range simulation.Kinds {
		if !k.IsMovable() {
			continue
		}
		records = append(records, StatsRecord{
			Tick:  s.Tick,
			Kind:  k.String(),
			Stats: simulation.ComputeStats(s.Kinds[k]),
		})
	}
	return records
}

// OutputManager handles CSV output of a run.
type OutputManager struct {
	dir          string
	entityFile   *os.File
	statsFile    *os.File
	withEntities bool

	// Track if headers have been written
	entityHeaderWritten bool
	statsHeaderWritten  bool
}

// NewOutputManager creates dir and the CSV files in it.
// Returns nil if dir is empty (output disabled); every method accepts a nil manager.
// entities.csv is only produced when withEntities is set.
func NewOutputManager(dir string, withEntities bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, withEntities: withEntities}

	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	if withEntities {
		f, err = os.Create(filepath.Join(dir, "entities.csv"))
		if err != nil {
			om.statsFile.Close()
			return nil, fmt.Errorf("creating entities.csv: %w", err)
		}
		om.entityFile = f
	}
	return om, nil
}

// WriteConfig saves the configuration the run used as YAML.
func (om *OutputManager) WriteConfig(cfg simulation.FileConfig) error {
	if om == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("writing config.yaml: %w", err)
	}
	return nil
}

// WriteSnapshot appends the rows of one snapshot.
func (om *OutputManager) WriteSnapshot(s simulation.Snapshot) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.statsFile, StatsRecords(s), &om.statsHeaderWritten); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	if !om.withEntities {
		return nil
	}
	if err := writeRecords(om.entityFile, EntityRecords(s), &om.entityHeaderWritten); err != nil {
		return fmt.Errorf("writing entities: %w", err)
	}
	return nil
}

// writeRecords writes the header with the first batch only.
func writeRecords[T any](f *os.File, records []T, headerWritten *bool) error {
	if len(records) == 0 {
		return nil
	}
	if !*headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	// Subsequent writes skip headers
	return gocsv.MarshalWithoutHeaders(records, f)
}

// Close flushes and closes every file.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var err error
	if om.statsFile != nil {
		err = multierr.Append(err, om.statsFile.Close())
	}
	if om.entityFile != nil {
		err = multierr.Append(err, om.entityFile.Close())
	}
	return err
}
