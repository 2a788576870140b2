// Package dataset loads face vectors from disk into the dimensions x samples
// matrices consumed by facemodel.
//
// Files hold one face per record (an fvecs/bvecs record or a CSV row). The
// loaders transpose them so that each face becomes one matrix column.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmpty is returned when a source holds no faces.
	ErrEmpty = errors.New("dataset is empty")

	// ErrInconsistentDims is returned when faces differ in length.
	ErrInconsistentDims = errors.New("inconsistent face dimensions")

	// ErrUnknownFormat is returned by Load for an unrecognised file extension.
	ErrUnknownFormat = errors.New("unknown dataset format")
)

// Dataset is a set of faces with one identifier per sample.
type Dataset struct {
	// Name of the source, usually the file name without extension.
	Name string

	// IDs has one entry per column of Faces.
	IDs []string

	// Faces is dimensions x samples.
	Faces *mat.Dense
}

// FromRows builds a Dataset from one face per row. ids may be nil, in which
// case identifiers are generated from name.
func FromRows(name string, ids []string, rows [][]float64) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	d := len(rows[0])
	if d == 0 {
		return nil, fmt.Errorf("%w: face 0 has no values", ErrEmpty)
	}
	if ids != nil && len(ids) != len(rows) {
		return nil, fmt.Errorf("got %d ids for %d faces", len(ids), len(rows))
	}

	faces := mat.NewDense(d, len(rows), nil)
	for j, row := range rows {
		if len(row) != d {
			return nil, fmt.Errorf("%w: expected %d, got %d at face %d", ErrInconsistentDims, d, len(row), j)
		}
		faces.SetCol(j, row)
	}

	if ids == nil {
		ids = make([]string, len(rows))
		for i := range ids {
			ids[i] = fmt.Sprintf("%s_%d", name, i)
		}
	}

	return &Dataset{Name: name, IDs: ids, Faces: faces}, nil
}

// Dims returns the feature dimensionality and the number of faces.
func (d *Dataset) Dims() (dims, samples int) {
	return d.Faces.Dims()
}

// Face returns a copy of the j-th face.
func (d *Dataset) Face(j int) []float64 {
	return mat.Col(nil, j, d.Faces)
}

// Rows returns the faces as one slice per sample.
func (d *Dataset) Rows() [][]float64 {
	_, n := d.Faces.Dims()
	rows := make([][]float64, n)
	for j := range rows {
		rows[j] = d.Face(j)
	}
	return rows
}

// Subset returns a dataset with the first n faces. The faces are copied.
func (d *Dataset) Subset(n int) *Dataset {
	dims, samples := d.Faces.Dims()
	if n > samples {
		n = samples
	}
	ids := make([]string, n)
	copy(ids, d.IDs[:n])
	return &Dataset{
		Name:  d.Name,
		IDs:   ids,
		Faces: mat.DenseCopyOf(d.Faces.Slice(0, dims, 0, n)),
	}
}

// Load reads a dataset, choosing the reader from the file extension:
// .fvecs, .bvecs or .csv.
func Load(path string) (*Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var (
		ids  []string
		rows [][]float64
	)
	switch ext {
	case ".fvecs":
		rows, err = ReadFvecs(f)
	case ".bvecs":
		rows, err = ReadBvecs(f)
	case ".csv":
		ids, rows, err = ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return FromRows(name, ids, rows)
}
