package wire

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrMalformedBlock is wrapped by every decoding failure of a varchar block.
var ErrMalformedBlock = errors.New("malformed varchar block")

// Rows returns the number of rows encoded in the block.
func (v *VarcharData) Rows() int {
	return len(v.Sizes)
}

// VarcharOffsets computes the prefix-sum offsets of a varchar block.
// A null row contributes zero bytes whatever its size field claims.
// nulls may be empty, meaning no row is null.
func VarcharOffsets(sizes []int32, nulls []bool) ([]int32, error) {
	if len(nulls) != 0 && len(nulls) != len(sizes) {
		return nil, fmt.Errorf("%w: %d null flags for %d sizes", ErrMalformedBlock, len(nulls), len(sizes))
	}

	offsets := make([]int32, len(sizes)+1)
	var total int64
	for i, size := range sizes {
		if len(nulls) != 0 && nulls[i] {
			offsets[i+1] = offsets[i]
			continue
		}
		if size < 0 {
			return nil, fmt.Errorf("%w: negative size %d at row %d", ErrMalformedBlock, size, i)
		}
		total += int64(size)
		if total > math.MaxInt32 {
			return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrMalformedBlock, math.MaxInt32)
		}
		offsets[i+1] = int32(total)
	}
	return offsets, nil
}

// DecodeVarchar reconstructs an Arrow string array from a varchar block.
// The payload is base64-decoded once and shared by all rows. Caller must
// Release the returned array.
func DecodeVarchar(mem memory.Allocator, data *VarcharData) (*array.String, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: missing varchar data", ErrMalformedBlock)
	}

	offsets, err := VarcharOffsets(data.Sizes, data.Nulls)
	if err != nil {
		return nil, err
	}

	payload, err := base64.StdEncoding.DecodeString(data.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrMalformedBlock, err)
	}

	n := len(data.Sizes)
	end := int(offsets[n])
	if end > len(payload) {
		return nil, fmt.Errorf("%w: sizes need %d bytes, payload has %d", ErrMalformedBlock, end, len(payload))
	}

	var validity *memory.Buffer
	nullCount := 0
	for _, isNull := range data.Nulls {
		if isNull {
			nullCount++
		}
	}
	if nullCount > 0 {
		validity = memory.NewResizableBuffer(mem)
		validity.Resize(int(bitutil.BytesForBits(int64(n))))
		bits := validity.Bytes()
		memory.Set(bits, 0)
		for i, isNull := range data.Nulls {
			if !isNull {
				bitutil.SetBit(bits, i)
			}
		}
	}

	buffers := []*memory.Buffer{
		validity,
		memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offsets)),
		memory.NewBufferBytes(payload[:end]),
	}
	arrData := array.NewData(arrow.BinaryTypes.String, n, buffers, nil, nullCount, 0)
	for _, buf := range buffers {
		if buf != nil {
			buf.Release()
		}
	}
	defer arrData.Release()

	return array.NewStringData(arrData), nil
}

// EncodeVarchar builds a varchar block from row values.
// A nil entry in values is encoded as a null row.
func EncodeVarchar(values [][]byte) *VarcharData {
	data := &VarcharData{
		Nulls: make([]bool, len(values)),
		Sizes: make([]int32, len(values)),
	}

	var total int
	for _, v := range values {
		total += len(v)
	}
	payload := make([]byte, 0, total)
	for i, v := range values {
		if v == nil {
			data.Nulls[i] = true
			continue
		}
		data.Sizes[i] = int32(len(v))
		payload = append(payload, v...)
	}
	data.Bytes = base64.StdEncoding.EncodeToString(payload)
	return data
}

// VarcharValue encodes a single non-null value as a one-row block, the
// form used for constraint values.
func VarcharValue(v []byte) Block {
	return Block{
		VarcharData: &VarcharData{
			Nulls: []bool{false},
			Sizes: []int32{int32(len(v))},
			Bytes: base64.StdEncoding.EncodeToString(v),
		},
	}
}
