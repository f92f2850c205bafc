package adh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrNotDataset is returned when the input is not a mesh2d DATASET file
	ErrNotDataset = errors.New("not a mesh2d DATASET file")

	// ErrRowCount is returned when a timestep table does not have one row per vertex
	ErrRowCount = errors.New("timestep row count does not match vertex count")

	// ErrRowWidth is returned when value rows disagree on their component count
	ErrRowWidth = errors.New("row component count differs from earlier rows")
)

// Kind distinguishes scalar from vector datasets
type Kind string

const (
	Scalar Kind = "scalar"
	Vector Kind = "vector"
)

// Step is the table of values for one timestep, one row per mesh vertex
type Step struct {
	Time   float64     `json:"time"`
	Values [][]float64 `json:"values"`
}

// Dataset is a time-indexed set of per-vertex tables read from a mesh2d file
type Dataset struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Columns   []string `json:"columns"`
	TimeUnits string   `json:"time_units,omitempty"`
	Vertices  int      `json:"vertices"`
	Elements  int      `json:"elements"`
	Steps     []Step   `json:"steps"`
}

// Times returns the timestep identifiers in file order
func (d *Dataset) Times() []float64 {
	times := make([]float64, len(d.Steps))
	for i, s := range d.Steps {
		times[i] = s.Time
	}
	return times
}

// Step returns the table recorded at time t
func (d *Dataset) Step(t float64) (*Step, bool) {
	for i := range d.Steps {
		if d.Steps[i].Time == t {
			return &d.Steps[i], true
		}
	}
	return nil, false
}

// Column returns component c of step i as a flat per-vertex slice
func (d *Dataset) Column(i, c int) ([]float64, error) {
	if i < 0 || i >= len(d.Steps) {
		return nil, fmt.Errorf("step %d out of range (%d steps)", i, len(d.Steps))
	}
	if c < 0 || c >= len(d.Columns) {
		return nil, fmt.Errorf("column %d out of range (%d columns)", c, len(d.Columns))
	}

	out := make([]float64, len(d.Steps[i].Values))
	for r, row := range d.Steps[i].Values {
		if c >= len(row) {
			return nil, fmt.Errorf("time %v row %d has %d components: %w", d.Steps[i].Time, r, len(row), ErrRowWidth)
		}
		out[r] = row[c]
	}
	return out, nil
}

// Magnitude returns the euclidean norm of each row of step i. For scalar
// datasets this is the absolute value.
func (d *Dataset) Magnitude(i int) ([]float64, error) {
	if i < 0 || i >= len(d.Steps) {
		return nil, fmt.Errorf("step %d out of range (%d steps)", i, len(d.Steps))
	}

	out := make([]float64, len(d.Steps[i].Values))
	for r, row := range d.Steps[i].Values {
		sum := 0.0
		for _, v := range row {
			sum += v * v
		}
		out[r] = math.Sqrt(sum)
	}
	return out, nil
}

// Field picks the per-vertex values to display for step i: the single column
// of a scalar dataset, or the magnitude of a vector dataset when column < 0.
func (d *Dataset) Field(i, column int) ([]float64, error) {
	if d.Kind == Vector && column < 0 {
		return d.Magnitude(i)
	}
	return d.Column(i, max(column, 0))
}

// Validate checks the dataset against the vertex count of its mesh
func (d *Dataset) Validate(vertices int) error {
	for _, s := range d.Steps {
		if len(s.Values) != vertices {
			return fmt.Errorf("time %v has %d rows, mesh has %d vertices: %w", s.Time, len(s.Values), vertices, ErrRowCount)
		}
	}
	return nil
}

// ReadMesh2DFile opens and parses a mesh2d dataset file
func ReadMesh2DFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ReadMesh2D(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ReadMesh2D parses a mesh2d dataset: a DATASET header followed by one
// "TS istat time" block per timestep, each holding ND value rows.
func ReadMesh2D(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	d := &Dataset{Kind: Scalar}
	var cur *Step
	statusRows := 0 // element status flags still to skip after a "TS 1 t" header
	width := 0      // components per row, fixed by the first value row
	lineNo := 0
	cards := 0 // non-blank lines; the first two must be the DATASET header

	finish := func() error {
		if cur == nil {
			return nil
		}
		if d.Vertices > 0 && len(cur.Values) != d.Vertices {
			return fmt.Errorf("time %v has %d rows, header declares ND %d: %w", cur.Time, len(cur.Values), d.Vertices, ErrRowCount)
		}
		d.Steps = append(d.Steps, *cur)
		cur = nil
		return nil
	}

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cards++

		switch cards {
		case 1:
			if fields[0] != "DATASET" {
				return nil, fmt.Errorf("line %d: expected DATASET, got %q: %w", lineNo, fields[0], ErrNotDataset)
			}
			continue
		case 2:
			if fields[0] != "OBJTYPE" || len(fields) < 2 || strings.Trim(fields[1], `"`) != "mesh2d" {
				return nil, fmt.Errorf("line %d: expected OBJTYPE \"mesh2d\": %w", lineNo, ErrNotDataset)
			}
			continue
		}

		if cur != nil && statusRows > 0 {
			statusRows--
			continue
		}

		switch fields[0] {
		case "BEGSCL":
			d.Kind = Scalar
		case "BEGVEC":
			d.Kind = Vector
		case "ND", "NC":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: %s without a count", lineNo, fields[0])
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s count: %w", lineNo, fields[0], err)
			}
			if fields[0] == "ND" {
				d.Vertices = n
			} else {
				d.Elements = n
			}
		case "NAME":
			d.Name = strings.Trim(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "NAME")), `"`)
		case "TIMEUNITS":
			if len(fields) > 1 {
				d.TimeUnits = fields[1]
			}
		case "TS":
			if err := finish(); err != nil {
				return nil, err
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: TS header needs istat and time", lineNo)
			}
			istat, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid TS status flag: %w", lineNo, err)
			}
			t, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid TS time: %w", lineNo, err)
			}
			cur = &Step{Time: t}
			if d.Vertices > 0 {
				cur.Values = make([][]float64, 0, d.Vertices)
			}
			if istat != 0 {
				statusRows = d.Elements
			}
		case "ENDDS":
			if err := finish(); err != nil {
				return nil, err
			}
		default:
			if cur == nil {
				// Other header cards (VECTYPE, OBJID, RT_JULIAN ...) carry nothing we need
				continue
			}
			row, err := parseRow(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if width == 0 {
				width = len(row)
			} else if len(row) != width {
				// Every timestep must carry the same components
				return nil, fmt.Errorf("line %d: row has %d components, expected %d: %w", lineNo, len(row), width, ErrRowWidth)
			}
			cur.Values = append(cur.Values, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	if cards < 2 {
		return nil, ErrNotDataset
	}
	if err := finish(); err != nil {
		return nil, err
	}

	d.Columns = columnNames(d)
	return d, nil
}

func parseRow(fields []string) ([]float64, error) {
	row := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", f, err)
		}
		row[i] = v
	}
	return row, nil
}

// columnNames names a single column after the dataset and numbers the
// components of multi-column datasets, e.g. "Velocity_0", "Velocity_1".
func columnNames(d *Dataset) []string {
	n := 1
	for _, s := range d.Steps {
		if len(s.Values) > 0 {
			n = len(s.Values[0])
			break
		}
	}

	if n == 1 {
		return []string{d.Name}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", d.Name, i)
	}
	return names
}
