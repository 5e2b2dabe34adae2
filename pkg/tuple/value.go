// pkg/tuple/value.go
package tuple

// ValueType identifies the dynamic type carried by a Value.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInt
	TypeFloat
	TypeText
	TypeBlob
)

// Value is an immutable, dynamically-typed field value (akin to SQLite's
// Mem cell). Tuples are built from a slice of Values; the MVCC engine never
// interprets a Value's contents itself, it only hands them to the index
// layer's comparator.
type Value struct {
	typ      ValueType
	intVal   int64
	floatVal float64
	textVal  string
	blobVal  []byte
}

func NewNull() Value               { return Value{typ: TypeNull} }
func NewInt(i int64) Value          { return Value{typ: TypeInt, intVal: i} }
func NewFloat(f float64) Value      { return Value{typ: TypeFloat, floatVal: f} }
func NewText(s string) Value        { return Value{typ: TypeText, textVal: s} }

func NewBlob(b []byte) Value {
	if b == nil {
		return Value{typ: TypeBlob}
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{typ: TypeBlob, blobVal: cp}
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsNull() bool    { return v.typ == TypeNull }
func (v Value) Int() int64      { return v.intVal }
func (v Value) Float() float64  { return v.floatVal }
func (v Value) Text() string    { return v.textVal }

func (v Value) Blob() []byte {
	if v.blobVal == nil {
		return nil
	}
	cp := make([]byte, len(v.blobVal))
	copy(cp, v.blobVal)
	return cp
}

// Compare orders two values of the same dynamic type. Cross-type comparisons
// order by ValueType, matching the type-affinity ordering the index layer
// expects its comparator to provide (NULL < INT/FLOAT < TEXT < BLOB).
func (v Value) Compare(other Value) int {
	if v.typ != other.typ {
		if v.typ < other.typ {
			return -1
		}
		return 1
	}
	switch v.typ {
	case TypeNull:
		return 0
	case TypeInt:
		switch {
		case v.intVal < other.intVal:
			return -1
		case v.intVal > other.intVal:
			return 1
		default:
			return 0
		}
	case TypeFloat:
		switch {
		case v.floatVal < other.floatVal:
			return -1
		case v.floatVal > other.floatVal:
			return 1
		default:
			return 0
		}
	case TypeText:
		switch {
		case v.textVal < other.textVal:
			return -1
		case v.textVal > other.textVal:
			return 1
		default:
			return 0
		}
	default: // TypeBlob
		a, b := v.blobVal, other.blobVal
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		for i := 0; i < n; i++ {
			if a[i] != b[i] {
				if a[i] < b[i] {
					return -1
				}
				return 1
			}
		}
		switch {
		case len(a) < len(b):
			return -1
		case len(a) > len(b):
			return 1
		default:
			return 0
		}
	}
}
