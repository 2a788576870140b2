package dataset

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxDim bounds the per-record dimension accepted from a vecs header, so a
// corrupt header cannot force a huge allocation before any value is read.
// 1<<24 values covers a 4096x4096 grayscale face.
const MaxDim = 1 << 24

// ReadFvecs reads faces from an io.Reader in FVECS format.
//
// FVECS format, for each face:
//   - 4 bytes: dimension (int32, little-endian)
//   - dimension * 4 bytes: float32 values (little-endian)
func ReadFvecs(r io.Reader) ([][]float64, error) {
	return readVecs(r, func(dim int32) ([]float64, error) {
		floats := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, floats); err != nil {
			return nil, err
		}
		vec := make([]float64, dim)
		for i, v := range floats {
			vec[i] = float64(v)
		}
		return vec, nil
	})
}

// ReadBvecs reads faces from an io.Reader in BVECS format, the usual layout
// for 8-bit grayscale pixels. Values are promoted to float64.
//
// BVECS format, for each face:
//   - 4 bytes: dimension (int32, little-endian)
//   - dimension bytes: uint8 values
func ReadBvecs(r io.Reader) ([][]float64, error) {
	return readVecs(r, func(dim int32) ([]float64, error) {
		pixels := make([]uint8, dim)
		if _, err := io.ReadFull(r, pixels); err != nil {
			return nil, err
		}
		vec := make([]float64, dim)
		for i, v := range pixels {
			vec[i] = float64(v)
		}
		return vec, nil
	})
}

func readVecs(r io.Reader, readValues func(dim int32) ([]float64, error)) ([][]float64, error) {
	var vectors [][]float64
	var expectedDim int32 = -1

	for {
		var dim int32
		err := binary.Read(r, binary.LittleEndian, &dim)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dimension: %w", err)
		}
		if dim <= 0 || dim > MaxDim {
			return nil, fmt.Errorf("invalid dimension %d at face %d (limit %d)", dim, len(vectors), MaxDim)
		}

		if expectedDim == -1 {
			expectedDim = dim
		} else if dim != expectedDim {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrInconsistentDims, expectedDim, dim)
		}

		vec, err := readValues(dim)
		if err != nil {
			return nil, fmt.Errorf("failed to read values of face %d: %w", len(vectors), err)
		}
		vectors = append(vectors, vec)
	}

	if len(vectors) == 0 {
		return nil, ErrEmpty
	}
	return vectors, nil
}

// WriteFvecs writes faces to an io.Writer in FVECS format.
func WriteFvecs(w io.Writer, vectors [][]float64) error {
	for _, vec := range vectors {
		if err := binary.Write(w, binary.LittleEndian, int32(len(vec))); err != nil {
			return fmt.Errorf("failed to write dimension: %w", err)
		}
		floats := make([]float32, len(vec))
		for i, v := range vec {
			floats[i] = float32(v)
		}
		if err := binary.Write(w, binary.LittleEndian, floats); err != nil {
			return fmt.Errorf("failed to write values: %w", err)
		}
	}
	return nil
}
