package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every load, validation and build failure.
var ErrInvalidConfig = errors.New("config: invalid flowsheet file")

// File is a decoded flowsheet file.
type File struct {
	Name      string   `yaml:"name"`
	Chemicals []any    `yaml:"chemicals" validate:"min=1,dive,required"` // catalog ID or inline property.Chemical
	Activity  Activity `yaml:"activity"`
	Streams   []Stream `yaml:"streams" validate:"dive"`
	Units     []Unit   `yaml:"units" validate:"min=1,dive"`
	Tears     []string `yaml:"tears" validate:"dive,required"`
	Solver    Solver   `yaml:"solver"`
}

// Activity selects the liquid activity model. An nrtl model without pairs
// uses the built-in parameter table.
type Activity struct {
	Model string `yaml:"model" validate:"omitempty,oneof=ideal nrtl margules"`
	Pairs []Pair `yaml:"pairs" validate:"dive"`
}

// Pair holds binary interaction parameters between chemicals I and J.
type Pair struct {
	I     string  `yaml:"i" validate:"required"`
	J     string  `yaml:"j" validate:"required,nefield=I"`
	A     float64 `yaml:"a"` // margules
	Aij   float64 `yaml:"aij"`
	Bij   float64 `yaml:"bij"`
	Aji   float64 `yaml:"aji"`
	Bji   float64 `yaml:"bji"`
	Alpha float64 `yaml:"alpha" validate:"gte=0"`
}

// Stream declares a feed or an initial tear guess. Streams only named by
// units start empty.
type Stream struct {
	ID    string             `yaml:"id" validate:"required"`
	Phase string             `yaml:"phase" validate:"omitempty,phase"`
	T     float64            `yaml:"T" validate:"omitempty,gt=0"` // 0 keeps flowsheet.StandardT
	P     float64            `yaml:"P" validate:"omitempty,gt=0"` // 0 keeps flowsheet.StandardP
	Flows map[string]float64 `yaml:"flows" validate:"flows"`      // kmol/h by chemical ID
}

// Unit declares one unit operation.
type Unit struct {
	ID      string         `yaml:"id" validate:"required"`
	Type    string         `yaml:"type" validate:"required,unittype"`
	Inlets  []string       `yaml:"inlets" validate:"dive,required"`
	Outlets []string       `yaml:"outlets" validate:"dive,required"`
	Params  map[string]any `yaml:"params"`
}

// Solver carries recycle and equilibrium settings; zero values keep the
// package defaults.
type Solver struct {
	MaxPasses           int     `yaml:"max_passes" validate:"gte=0"`
	RelTol              float64 `yaml:"rel_tol" validate:"gte=0"`
	FlowFloor           float64 `yaml:"flow_floor" validate:"gte=0"`
	TempTol             float64 `yaml:"temp_tol" validate:"gte=0"`
	Parallelism         int     `yaml:"parallelism" validate:"gte=0"`
	Accelerator         string  `yaml:"accelerator" validate:"accelerator"`
	ContinueOnUnitError bool    `yaml:"continue_on_unit_error"`
	EquilibriumTol      float64 `yaml:"equilibrium_tol" validate:"gte=0"`
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return Parse(data)
}

// Parse decodes and validates a flowsheet document. Unknown keys are
// rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate checks field rules first, then the references between
// sections. Unit parameters are checked by Build.
func (f *File) Validate() error {
	// 1. Field rules, all reported together.
	if err := validate.Struct(f); err != nil {
		return fieldErrors(err)
	}

	// 2. Unique units; tears name unit streams.
	seen := make(map[string]bool, len(f.Units))
	named := make(map[string]bool)
	for _, u := range f.Units {
		if seen[u.ID] {
			return invalid("duplicate unit %q", u.ID)
		}
		seen[u.ID] = true
		for _, s := range append(append([]string(nil), u.Inlets...), u.Outlets...) {
			named[s] = true
		}
	}
	for _, id := range f.Tears {
		if !named[id] {
			return invalid("tear %q is not a unit stream", id)
		}
	}

	// 3. Unique streams whose flows name declared chemicals.
	chems, err := f.chemicalIDs()
	if err != nil {
		return err
	}
	declared := make(map[string]bool, len(f.Streams))
	for _, s := range f.Streams {
		if declared[s.ID] {
			return invalid("duplicate stream %q", s.ID)
		}
		declared[s.ID] = true
		for id := range s.Flows {
			if !chems[id] {
				return invalid("stream %s: flow of undeclared chemical %q", s.ID, id)
			}
		}
	}

	return nil
}

// chemicalIDs collects the IDs of catalog and inline chemicals.
func (f *File) chemicalIDs() (map[string]bool, error) {
	ids := make(map[string]bool, len(f.Chemicals))
	for i, entry := range f.Chemicals {
		switch v := entry.(type) {
		case string:
			ids[v] = true
		case map[string]any:
			var c struct {
				ID string `mapstructure:"id"`
			}
			if err := mapstructure.Decode(v, &c); err != nil || c.ID == "" {
				return nil, invalid("chemical %d: inline chemical needs an id", i)
			}
			ids[c.ID] = true
		default:
			return nil, invalid("chemical %d: want an ID or a mapping, got %T", i, entry)
		}
	}

	return ids, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
