// pkg/tuple/record.go
package tuple

import (
	"encoding/binary"
	"math"
)

// Serial type tags, following the teacher's SQLite-inspired record format:
// a varint-prefixed header of per-field serial types followed by the field
// data itself. Only the primitive types this engine's tuples need are kept;
// the teacher's strict-type extensions (DECIMAL, GUID, VARCHAR, CHAR,
// SERIAL/BIGSERIAL) belong to the SQL type system, not to MVCC bookkeeping,
// and have no component in this repo to serve them.
const (
	serialNull  = 0
	serialInt8  = 1
	serialInt16 = 2
	serialInt32 = 4
	serialInt64 = 6
	serialFloat = 7
	serialZero  = 8
	serialOne   = 9
	serialBlob0 = 12 // even >= 12: BLOB, length = (serial-12)/2
	serialText0 = 13 // odd >= 13: TEXT, length = (serial-13)/2
)

func serialTypeFor(v Value) uint64 {
	switch v.Type() {
	case TypeNull:
		return serialNull
	case TypeInt:
		return serialTypeForInt(v.Int())
	case TypeFloat:
		return serialFloat
	case TypeText:
		return serialText0 + uint64(len(v.Text()))*2
	default: // TypeBlob
		return serialBlob0 + uint64(len(v.Blob()))*2
	}
}

func serialTypeForInt(i int64) uint64 {
	switch {
	case i == 0:
		return serialZero
	case i == 1:
		return serialOne
	case i >= -128 && i <= 127:
		return serialInt8
	case i >= -32768 && i <= 32767:
		return serialInt16
	case i >= -2147483648 && i <= 2147483647:
		return serialInt32
	default:
		return serialInt64
	}
}

func serialTypeSize(st uint64) int {
	switch st {
	case serialNull, serialZero, serialOne:
		return 0
	case serialInt8:
		return 1
	case serialInt16:
		return 2
	case serialInt32:
		return 4
	case serialInt64, serialFloat:
		return 8
	default:
		if st >= serialBlob0 {
			if st&1 == 0 {
				return int((st - serialBlob0) / 2)
			}
			return int((st - serialText0) / 2)
		}
		return 0
	}
}

// Encode packs values into the on-wire record format:
// [header-len varint][serial-type varint]*N [field data]*N
func Encode(values []Value) []byte {
	if len(values) == 0 {
		return []byte{1}
	}

	serialTypes := make([]uint64, len(values))
	dataSize := 0
	headerSize := 0
	for i, v := range values {
		st := serialTypeFor(v)
		serialTypes[i] = st
		dataSize += serialTypeSize(st)
		headerSize += VarintLen(st)
	}

	hdrLenSize := VarintLen(uint64(headerSize + 1))
	for hdrLenSize != VarintLen(uint64(headerSize+hdrLenSize)) {
		hdrLenSize = VarintLen(uint64(headerSize + hdrLenSize))
	}
	headerSize += hdrLenSize

	buf := make([]byte, headerSize+dataSize)
	pos := PutVarint(buf, uint64(headerSize))
	for _, st := range serialTypes {
		pos += PutVarint(buf[pos:], st)
	}
	for i, v := range values {
		pos += encodeValue(buf[pos:], v, serialTypes[i])
	}
	return buf
}

func encodeValue(buf []byte, v Value, st uint64) int {
	switch st {
	case serialNull, serialZero, serialOne:
		return 0
	case serialInt8:
		buf[0] = byte(v.Int())
		return 1
	case serialInt16:
		binary.BigEndian.PutUint16(buf, uint16(v.Int()))
		return 2
	case serialInt32:
		binary.BigEndian.PutUint32(buf, uint32(v.Int()))
		return 4
	case serialInt64:
		binary.BigEndian.PutUint64(buf, uint64(v.Int()))
		return 8
	case serialFloat:
		binary.BigEndian.PutUint64(buf, math.Float64bits(v.Float()))
		return 8
	default:
		size := serialTypeSize(st)
		if st&1 == 0 {
			copy(buf, v.Blob())
		} else {
			copy(buf, v.Text())
		}
		return size
	}
}

// Decode unpacks a record produced by Encode back into values.
func Decode(data []byte) []Value {
	if len(data) == 0 {
		return nil
	}
	headerSize, n := GetVarint(data)
	if headerSize == 0 || int(headerSize) > len(data) {
		return nil
	}

	var serialTypes []uint64
	pos := n
	for pos < int(headerSize) {
		st, m := GetVarint(data[pos:])
		serialTypes = append(serialTypes, st)
		pos += m
	}

	values := make([]Value, len(serialTypes))
	dataPos := int(headerSize)
	for i, st := range serialTypes {
		values[i], dataPos = decodeValue(data, dataPos, st)
	}
	return values
}

func decodeValue(data []byte, pos int, st uint64) (Value, int) {
	switch st {
	case serialNull:
		return NewNull(), pos
	case serialZero:
		return NewInt(0), pos
	case serialOne:
		return NewInt(1), pos
	case serialInt8:
		return NewInt(int64(int8(data[pos]))), pos + 1
	case serialInt16:
		v := int16(binary.BigEndian.Uint16(data[pos:]))
		return NewInt(int64(v)), pos + 2
	case serialInt32:
		v := int32(binary.BigEndian.Uint32(data[pos:]))
		return NewInt(int64(v)), pos + 4
	case serialInt64:
		v := int64(binary.BigEndian.Uint64(data[pos:]))
		return NewInt(v), pos + 8
	case serialFloat:
		bits := binary.BigEndian.Uint64(data[pos:])
		return NewFloat(math.Float64frombits(bits)), pos + 8
	default:
		size := serialTypeSize(st)
		if st&1 == 0 {
			b := make([]byte, size)
			copy(b, data[pos:pos+size])
			return NewBlob(b), pos + size
		}
		return NewText(string(data[pos : pos+size])), pos + size
	}
}
