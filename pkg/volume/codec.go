package volume

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeLE serializes samples as little-endian IEEE-754 float32.
func EncodeLE(data []float32) []byte {
	b := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

// DecodeLE parses little-endian float32 samples.
func DecodeLE(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("decode f32 samples: %d bytes is not a multiple of 4", len(b))
	}
	data := make([]float32, len(b)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return data, nil
}

// Bytes returns the field samples in wire encoding.
func (f *Field) Bytes() []byte {
	return EncodeLE(f.Data)
}

// FieldFromBytes decodes a transmitted field whose dims and native range are
// known from metadata.
func FieldFromBytes(d Dims, r ValueRange, b []byte) (*Field, error) {
	if len(b) != 4*d.Len() {
		return nil, fmt.Errorf("field %s: got %d bytes, want %d: %w", d, len(b), 4*d.Len(), ErrDimsMismatch)
	}
	data, err := DecodeLE(b)
	if err != nil {
		return nil, err
	}
	return NewFieldWithRange(d, data, r)
}
