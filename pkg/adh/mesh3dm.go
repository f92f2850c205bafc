// Package adh reads the text formats written by the AdH hydrodynamic model
// and the SMS pre/post processor: .3dm meshes and mesh2d .dat datasets.
package adh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/meshview/pkg/mesh"
)

// maxLineSize bounds a single line of input; mesh rows are short but dataset
// headers written by some tools carry long NAME strings.
const maxLineSize = 1024 * 1024

// Read3DMFile opens and parses a .3dm mesh file
func Read3DMFile(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Read3DM(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Read3DM parses a .3dm mesh. The first line is a header and is skipped.
// E3T rows become triangles (1-based node ids converted to 0-based indices) and
// ND rows become vertices with the sign of z flipped so depth is positive.
// Every other row type is ignored.
func Read3DM(r io.Reader) (*mesh.Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	m := &mesh.Mesh{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "e3t":
			t, err := parseE3T(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			m.Triangles = append(m.Triangles, t)
		case "nd":
			v, err := parseND(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			m.Vertices = append(m.Vertices, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading mesh: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseE3T handles "E3T id n1 n2 n3 [material]"
func parseE3T(fields []string) (mesh.Triangle, error) {
	var t mesh.Triangle
	if len(fields) < 5 {
		return t, fmt.Errorf("E3T row needs 3 node ids, got %d fields", len(fields))
	}

	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return t, fmt.Errorf("invalid node id %q: %w", fields[i+2], err)
		}
		t.V[i] = n - 1
	}

	if len(fields) > 5 {
		mat, err := strconv.Atoi(fields[5])
		if err != nil {
			return t, fmt.Errorf("invalid material id %q: %w", fields[5], err)
		}
		t.Material = mat
	}
	return t, nil
}

// parseND handles "ND id x y z"
func parseND(fields []string) (mesh.Vertex, error) {
	var v mesh.Vertex
	if len(fields) < 5 {
		return v, fmt.Errorf("ND row needs x, y and z, got %d fields", len(fields))
	}

	var xyz [3]float64
	for i := range xyz {
		f, err := strconv.ParseFloat(fields[i+2], 64)
		if err != nil {
			return v, fmt.Errorf("invalid coordinate %q: %w", fields[i+2], err)
		}
		xyz[i] = f
	}

	return mesh.Vertex{X: xyz[0], Y: xyz[1], Z: -xyz[2]}, nil
}
