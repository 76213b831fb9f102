package weights

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/otronforge/gateway/internal/tensor"
)

// safetensors has no Go parsing library anywhere in the retrieved
// corpus (see DESIGN.md) — it is a small, fully-specified binary
// container (an 8-byte little-endian header length, a JSON header
// describing each tensor's dtype/shape/byte range, then the raw tensor
// bytes) so this is read directly rather than fabricating a dependency.

type tensorHeader struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// LoadSafetensors reads one or more safetensors files (as produced by a
// sharded model.safetensors.index.json) and returns every tensor found,
// keyed by its name, decoded to float32 from F32, F16 or BF16 storage;
// any other dtype is an error.
func LoadSafetensors(paths []string) (map[string]tensor.Matrix, error) {
	out := make(map[string]tensor.Matrix)
	for _, path := range paths {
		if err := loadSafetensorsFile(path, out); err != nil {
			return nil, fmt.Errorf("weights: %s: %w", path, err)
		}
	}
	return out, nil
}

func loadSafetensorsFile(path string, out map[string]tensor.Matrix) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var headerLen uint64
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return err
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return err
	}

	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawHeader); err != nil {
		return fmt.Errorf("malformed safetensors header: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	for name, raw := range rawHeader {
		if name == "__metadata__" {
			continue
		}
		var hdr tensorHeader
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		start, end := hdr.DataOffsets[0], hdr.DataOffsets[1]
		if start < 0 || end > int64(len(data)) || start > end {
			return fmt.Errorf("tensor %s: out-of-range data offsets", name)
		}
		mat, err := decodeTensor(hdr.DType, hdr.Shape, data[start:end])
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		out[name] = mat
	}
	return nil
}

// decodeTensor reshapes a raw tensor into a 2D Matrix: 1D tensors (norm
// weights, biases) become a single row; tensors with more than 2 dims
// (rare outside attention/MLP weights, which are already 2D) flatten
// every dimension past the first into Cols.
func decodeTensor(dtype string, shape []int, raw []byte) (tensor.Matrix, error) {
	total := 1
	for _, d := range shape {
		total *= d
	}
	values, err := decodeValues(dtype, raw, total)
	if err != nil {
		return tensor.Matrix{}, err
	}

	rows, cols := 1, total
	switch len(shape) {
	case 0:
		rows, cols = 1, total
	case 1:
		rows, cols = 1, shape[0]
	default:
		rows = shape[0]
		cols = total / rows
	}
	return tensor.Matrix{Rows: rows, Cols: cols, Data: values}, nil
}

func decodeValues(dtype string, raw []byte, count int) ([]float32, error) {
	out := make([]float32, count)
	switch dtype {
	case "F32":
		if len(raw) < count*4 {
			return nil, fmt.Errorf("short F32 buffer")
		}
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = math.Float32frombits(bits)
		}
	case "F16":
		if len(raw) < count*2 {
			return nil, fmt.Errorf("short F16 buffer")
		}
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = float16ToFloat32(bits)
		}
	case "BF16":
		if len(raw) < count*2 {
			return nil, fmt.Errorf("short BF16 buffer")
		}
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = math.Float32frombits(uint32(bits) << 16)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %q", dtype)
	}
	return out, nil
}

// float16ToFloat32 converts an IEEE 754 binary16 value to binary32.
func float16ToFloat32(bits uint16) float32 {
	sign := uint32(bits>>15) & 0x1
	exp := uint32(bits>>10) & 0x1f
	frac := uint32(bits) & 0x3ff

	var outExp, outFrac uint32
	switch {
	case exp == 0 && frac == 0:
		outExp, outFrac = 0, 0
	case exp == 0:
		// Subnormal half: normalize into a normal float32.
		for frac&0x400 == 0 {
			frac <<= 1
			exp--
		}
		exp++
		frac &= 0x3ff
		outExp = exp - 15 + 127
		outFrac = frac << 13
	case exp == 0x1f:
		outExp = 0xff
		outFrac = frac << 13
	default:
		outExp = exp - 15 + 127
		outFrac = frac << 13
	}
	bits32 := sign<<31 | outExp<<23 | outFrac
	return math.Float32frombits(bits32)
}
