package gosnmp

import "math/big"

// VariableBinding is a single (name, value) pair as carried in a VarBindList.
// Value holds whatever decodeValue produced: *big.Int, []byte, OID, nil,
// bool, or Exception — callers type-switch on it rather than unwrap a tagged
// union.
type VariableBinding struct {
	Name  OID
	Tag   Tag
	Value any
}

// Int64 reports the VarBind's value as an int64 and whether it was an
// integer-family value at all (Integer, Counter32/64, Gauge32, TimeTicks).
func (v VariableBinding) Int64() (int64, bool) {
	return bigIntOrInt64(v.Value)
}

// Bytes reports the VarBind's value as raw bytes (OctetString/Opaque/
// IPAddress) and whether it was byte-typed.
func (v VariableBinding) Bytes() ([]byte, bool) {
	b, ok := v.Value.([]byte)
	return b, ok
}

// OID reports the VarBind's value as an OID and whether it was OID-typed.
func (v VariableBinding) OID() (OID, bool) {
	o, ok := v.Value.(OID)
	return o, ok
}

// Exception reports the VarBind's value as an Exception sentinel
// (noSuchObject/noSuchInstance/endOfMibView) and whether it was one.
func (v VariableBinding) Exception() (Exception, bool) {
	e, ok := v.Value.(Exception)
	return e, ok
}

func encodeValue(e *Encoder, value any) error {
	switch v := value.(type) {
	case nil:
		e.WriteNull()
	case bool:
		e.WriteBoolean(v)
	case int:
		e.WriteInt64(int64(v))
	case int32:
		e.WriteInt64(int64(v))
	case int64:
		e.WriteInt64(v)
	case *big.Int:
		e.WriteInteger(v)
	case []byte:
		e.WriteOctetString(v)
	case string:
		e.WriteOctetString([]byte(v))
	case OID:
		return e.WriteOID(v)
	case Exception:
		nr := uint32(exceptionNumber(v)) & 0x1F
		e.WritePrimitive(nr, ClassContext, nil)
	default:
		return syntaxErrorf("cannot encode value of type %T", value)
	}
	return nil
}

func exceptionNumber(e Exception) Number {
	switch e {
	case ExcNoSuchObject:
		return NoSuchObject
	case ExcNoSuchInstance:
		return NoSuchInstance
	default:
		return EndOfMibView
	}
}
