package space

import (
	"bytes"
	"encoding/binary"
	"math"

	"tur/pkg/index"
	"tur/pkg/tuple"
)

// keyFuncFor builds an index.KeyFunc that extracts and encodes the single
// field IndexDef.Fields[0] names, in the order tuple.Value.Compare expects
// (type tag first, so cross-type comparisons still order NULL < INT/FLOAT <
// TEXT < BLOB the way pkg/tuple.Value.Compare does).
func keyFuncFor(fieldIdx int) index.KeyFunc {
	return func(t *tuple.Tuple) []byte {
		values := t.Values()
		if fieldIdx >= len(values) {
			return nil
		}
		return EncodeKey(values[fieldIdx])
	}
}

// EncodeKey turns a single field value into a byte string whose bytewise
// order matches tuple.Value.Compare's order, so pkg/index.Ordered (which
// compares raw keys with bytes.Compare) agrees with it. Exported so callers
// building lookup keys from user input (mvccctl's put/get/delete commands)
// encode values the identical way BuildIndexes's key funcs do.
func EncodeKey(v tuple.Value) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(v.Type()))
	switch v.Type() {
	case tuple.TypeInt:
		// Flip the sign bit so two's-complement int64s sort correctly
		// under an unsigned bytewise compare.
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Int())^(1<<63))
		buf.Write(b[:])
	case tuple.TypeFloat:
		bits := floatBitsForOrder(v.Float())
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], bits)
		buf.Write(b[:])
	case tuple.TypeText:
		buf.WriteString(v.Text())
	case tuple.TypeBlob:
		buf.Write(v.Blob())
	}
	return buf.Bytes()
}

// floatBitsForOrder maps a float64's bits so unsigned bytewise comparison
// matches numeric order: for non-negative floats, flip the sign bit; for
// negative floats, flip every bit.
func floatBitsForOrder(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// BuildIndexes constructs one pkg/index.Index per IndexDef in order,
// grounded on the single-field-key restriction IndexDef documents. Kind
// selects Ordered vs Hash; Unique is passed straight through.
func BuildIndexes(idxs []IndexDef) []index.Index {
	out := make([]index.Index, len(idxs))
	for i, d := range idxs {
		kf := keyFuncFor(d.Fields[0])
		switch d.Kind {
		case IndexHash:
			out[i] = index.NewHash(index.ID(i), d.Unique, kf)
		default:
			out[i] = index.NewOrdered(index.ID(i), d.Unique, kf, nil)
		}
	}
	return out
}
