// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package gosnmp implements an asynchronous-style SNMP v1/v2c/v3 client:
// BER/DER codec, PDU and message framing, USM security, a UDP transport with
// retry and request demultiplexing, and the high level Client operations
// (Get, GetNext, GetNextMulti, and Walk, which uses GetBulk on v2c/v3).
package gosnmp

import (
	"fmt"
	"math/big"
)

// TagType is the primitive/constructed bit of an ASN.1 tag.
type TagType byte

// The two possible tag types.
const (
	TypePrimitive   TagType = 0x00
	TypeConstructed TagType = 0x20
)

// TagClass is the ASN.1 tag class.
type TagClass byte

// The four ASN.1 tag classes.
const (
	ClassUniversal   TagClass = 0x00
	ClassApplication TagClass = 0x40
	ClassContext     TagClass = 0x80
	ClassPrivate     TagClass = 0xC0
)

// Number identifies an ASN.1/SNMP tag by its class-qualified number, i.e.
// the bitwise-or of a bare tag number with its class byte. This matches how
// SNMP tag numbers are conventionally written (IPAddress = 0x40, not 0) and
// lets a single switch dispatch on (class, number) pairs.
type Number uint32

// Universal tags used by SNMP messages.
const (
	Boolean          Number = 0x01
	Integer          Number = 0x02
	OctetString      Number = 0x04
	Null             Number = 0x05
	ObjectIdentifier Number = 0x06
	Enumerated       Number = 0x0A
	Sequence         Number = 0x10
)

// SNMP application tags (RFC 1155 / RFC 2578).
const (
	IPAddress Number = 0x40
	Counter32 Number = 0x41
	Gauge32   Number = 0x42
	TimeTicks Number = 0x43
	Opaque    Number = 0x44
	Counter64 Number = 0x46
)

// SNMPv2 exception tags used in place of a value in a VarBind.
const (
	NoSuchObject   Number = 0x80
	NoSuchInstance Number = 0x81
	EndOfMibView   Number = 0x82
)

// Tag is the parsed (number, type, class) triple of an ASN.1 TLV.
type Tag struct {
	Nr  uint32
	Typ TagType
	Cls TagClass
}

// Combined returns the class-qualified Number used to dispatch value decoding.
func (t Tag) Combined() Number {
	return Number(t.Nr) | Number(t.Cls)
}

// SyntaxError is raised by the decoder on any malformed BER input: premature
// end of input, an illegal long-form length, a non-canonical OID encoding, or
// a boolean/null body of the wrong length.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string { return e.Msg }

func syntaxErrorf(format string, args ...any) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...)}
}

// Exception represents one of the three SNMPv2 sentinel values that can
// appear in place of an ordinary value on a response VarBind.
type Exception int

// The three SNMPv2 exception sentinels.
const (
	ExcNoSuchObject Exception = iota
	ExcNoSuchInstance
	ExcEndOfMibView
)

func (e Exception) String() string {
	switch e {
	case ExcNoSuchObject:
		return "noSuchObject"
	case ExcNoSuchInstance:
		return "noSuchInstance"
	case ExcEndOfMibView:
		return "endOfMibView"
	default:
		return "unknownException"
	}
}

func exceptionFor(nr Number) Exception {
	switch nr {
	case NoSuchObject:
		return ExcNoSuchObject
	case NoSuchInstance:
		return ExcNoSuchInstance
	default:
		return ExcEndOfMibView
	}
}

// decFrame is one level of the decoder's push-down stack: a data slice and a
// cursor into it, matching python-asn1's [index, data] stack entries.
type decFrame struct {
	data []byte
	pos  int
}

// Decoder decodes a BER/DER byte stream. Constructed tags are entered with
// Enter and left with Leave; Leave tolerates trailing bytes in the entered
// region rather than requiring it be fully consumed, to accept vendor
// quirks in agent-produced encodings.
type Decoder struct {
	stack []*decFrame
	tag   *Tag
}

// NewDecoder returns a Decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{stack: []*decFrame{{data: data}}}
}

func (d *Decoder) top() *decFrame { return d.stack[len(d.stack)-1] }

// EOF reports whether all bytes at the current nesting level have been read.
func (d *Decoder) EOF() bool {
	f := d.top()
	return f.pos >= len(f.data)
}

func (d *Decoder) readByte() (byte, error) {
	f := d.top()
	if f.pos >= len(f.data) {
		return 0, syntaxErrorf("premature end of input")
	}
	b := f.data[f.pos]
	f.pos++
	return b, nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	f := d.top()
	if n < 0 || f.pos+n > len(f.data) {
		return nil, syntaxErrorf("premature end of input")
	}
	b := f.data[f.pos : f.pos+n]
	f.pos += n
	return b, nil
}

func (d *Decoder) readTag() (Tag, error) {
	b, err := d.readByte()
	if err != nil {
		return Tag{}, err
	}
	cls := TagClass(b & 0xC0)
	typ := TagType(b & 0x20)
	nr := uint32(b & 0x1F)
	if nr == 0x1F {
		nr = 0
		for {
			b, err = d.readByte()
			if err != nil {
				return Tag{}, err
			}
			nr = (nr << 7) | uint32(b&0x7F)
			if b&0x80 == 0 {
				break
			}
		}
	}
	return Tag{Nr: nr, Typ: typ, Cls: cls}, nil
}

func (d *Decoder) readLength() (int, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	if b&0x80 != 0 {
		count := int(b & 0x7F)
		if count == 0x7F {
			return 0, syntaxErrorf("reserved length form (0xFF)")
		}
		bs, err := d.readBytes(count)
		if err != nil {
			return 0, err
		}
		length := 0
		for _, bb := range bs {
			length = (length << 8) | int(bb)
		}
		return length, nil
	}
	return int(b), nil
}

// Peek returns the tag at the current offset without advancing it.
func (d *Decoder) Peek() (Tag, error) {
	if d.EOF() {
		return Tag{}, syntaxErrorf("input is empty")
	}
	if d.tag == nil {
		t, err := d.readTag()
		if err != nil {
			return Tag{}, err
		}
		d.tag = &t
	}
	return *d.tag, nil
}

// Read decodes one TLV at the current offset and advances past it.
func (d *Decoder) Read() (Tag, any, error) {
	if d.EOF() {
		return Tag{}, nil, syntaxErrorf("input is empty")
	}
	tag, err := d.Peek()
	if err != nil {
		return Tag{}, nil, err
	}
	length, err := d.readLength()
	if err != nil {
		return Tag{}, nil, err
	}
	bytesData, err := d.readBytes(length)
	if err != nil {
		return Tag{}, nil, err
	}
	value, err := decodeValue(tag, bytesData)
	if err != nil {
		return Tag{}, nil, err
	}
	d.tag = nil
	return tag, value, nil
}

// ReadRaw returns the complete tag+length+value bytes of the TLV at the
// current offset, without decoding its value, and advances past it. Used
// where a caller needs to splice a sub-structure back out verbatim (USM
// authentication digests over an unparsed ScopedPDU region).
func (d *Decoder) ReadRaw() ([]byte, error) {
	f := d.top()
	start := f.pos
	if d.tag != nil {
		// A prior Peek already consumed the tag bytes; step back over them.
		start -= len(encodeTag(d.tag.Nr, d.tag.Typ, d.tag.Cls))
	}
	if _, err := d.Peek(); err != nil {
		return nil, err
	}
	length, err := d.readLength()
	if err != nil {
		return nil, err
	}
	if _, err := d.readBytes(length); err != nil {
		return nil, err
	}
	raw := f.data[start:f.pos]
	d.tag = nil
	return raw, nil
}

// Enter pushes into the constructed tag at the current offset so that
// subsequent Read/Enter calls operate on its contents. It is an error to
// call Enter on a primitive tag.
func (d *Decoder) Enter() error {
	tag, err := d.Peek()
	if err != nil {
		return err
	}
	if tag.Typ != TypeConstructed {
		return syntaxErrorf("cannot enter a non-constructed tag")
	}
	length, err := d.readLength()
	if err != nil {
		return err
	}
	data, err := d.readBytes(length)
	if err != nil {
		return err
	}
	d.stack = append(d.stack, &decFrame{data: data})
	d.tag = nil
	return nil
}

// Leave pops back out of the region entered by the matching Enter. Unread
// trailing bytes in that region are discarded rather than rejected.
func (d *Decoder) Leave() error {
	if len(d.stack) == 1 {
		return syntaxErrorf("tag stack is empty")
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.tag = nil
	return nil
}

func decodeValue(tag Tag, data []byte) (any, error) {
	switch tag.Combined() {
	case Boolean:
		return decodeBoolean(data)
	case Integer, Enumerated, TimeTicks, Gauge32, Counter32, Counter64:
		return decodeInteger(data), nil
	case Null:
		return nil, decodeNull(data)
	case ObjectIdentifier:
		return decodeObjectIdentifier(data)
	case EndOfMibView, NoSuchObject, NoSuchInstance:
		return exceptionFor(tag.Combined()), nil
	default:
		return data, nil
	}
}

func decodeBoolean(data []byte) (bool, error) {
	if len(data) != 1 {
		return false, syntaxErrorf("asn1 syntax error: bad boolean length %d", len(data))
	}
	return data[0] != 0, nil
}

func decodeInteger(data []byte) *big.Int {
	if len(data) == 0 {
		return big.NewInt(0)
	}
	n := new(big.Int).SetBytes(data)
	if data[0]&0x80 != 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(8*len(data)))
		n.Sub(n, full)
	}
	return n
}

func decodeNull(data []byte) error {
	if len(data) != 0 {
		return syntaxErrorf("asn1 syntax error: bad null length %d", len(data))
	}
	return nil
}

func decodeObjectIdentifier(data []byte) (OID, error) {
	var result []uint32
	var value uint32
	for _, b := range data {
		if value == 0 && b == 0x80 {
			return nil, syntaxErrorf("asn1 syntax error: non-canonical oid component")
		}
		value = (value << 7) | uint32(b&0x7F)
		if b&0x80 == 0 {
			result = append(result, value)
			value = 0
		}
	}
	if len(result) == 0 || result[0] > 1599 {
		return nil, syntaxErrorf("asn1 syntax error: invalid oid")
	}
	oid := make(OID, 0, len(result)+1)
	if result[0] >= 80 {
		oid = append(oid, 2, result[0]-80)
	} else {
		oid = append(oid, result[0]/40, result[0]%40)
	}
	oid = append(oid, result[1:]...)
	return oid, nil
}

// encFrame is one level of the encoder's push-down stack: the tag that will
// wrap this level's accumulated bytes once Leave back-patches the length.
type encFrame struct {
	nr  uint32
	typ TagType
	cls TagClass
	buf []byte
}

// Encoder builds a BER/DER byte stream by mirroring Decoder: primitives are
// appended directly, constructed tags are built by Enter/Leave with the
// length back-patched on Leave.
type Encoder struct {
	stack []*encFrame
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{stack: []*encFrame{{}}}
}

func (e *Encoder) top() *encFrame { return e.stack[len(e.stack)-1] }

func (e *Encoder) append(b []byte) {
	f := e.top()
	f.buf = append(f.buf, b...)
}

// Enter starts a new constructed tag region.
func (e *Encoder) Enter(nr uint32, cls TagClass) {
	e.stack = append(e.stack, &encFrame{nr: nr, typ: TypeConstructed, cls: cls})
}

// Leave closes the region started by the matching Enter, writing its tag,
// back-patched length, and accumulated value into the parent level.
func (e *Encoder) Leave() error {
	if len(e.stack) == 1 {
		return syntaxErrorf("tag stack is empty")
	}
	f := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	e.writeTLV(f.nr, f.typ, f.cls, f.buf)
	return nil
}

func (e *Encoder) writeTLV(nr uint32, typ TagType, cls TagClass, value []byte) {
	e.append(encodeTag(nr, typ, cls))
	e.append(encodeLength(len(value)))
	e.append(value)
}

// WritePrimitive appends a primitive TLV with the given class-qualified
// number and raw value bytes.
func (e *Encoder) WritePrimitive(nr uint32, cls TagClass, value []byte) {
	e.writeTLV(nr, TypePrimitive, cls, value)
}

// WriteInteger appends a two's-complement INTEGER of arbitrary precision.
func (e *Encoder) WriteInteger(n *big.Int) {
	e.WritePrimitive(uint32(Integer), ClassUniversal, encodeInteger(n))
}

// WriteInt64 appends an INTEGER built from a machine int64.
func (e *Encoder) WriteInt64(n int64) {
	e.WriteInteger(big.NewInt(n))
}

// WriteOctetString appends an OCTET STRING.
func (e *Encoder) WriteOctetString(b []byte) {
	e.WritePrimitive(uint32(OctetString), ClassUniversal, b)
}

// WriteNull appends a NULL.
func (e *Encoder) WriteNull() {
	e.WritePrimitive(uint32(Null), ClassUniversal, nil)
}

// WriteOID appends an OBJECT IDENTIFIER.
func (e *Encoder) WriteOID(oid OID) error {
	body, err := encodeOID(oid)
	if err != nil {
		return err
	}
	e.WritePrimitive(uint32(ObjectIdentifier), ClassUniversal, body)
	return nil
}

// WriteBoolean appends a BOOLEAN.
func (e *Encoder) WriteBoolean(v bool) {
	b := byte(0)
	if v {
		b = 0xFF
	}
	e.WritePrimitive(uint32(Boolean), ClassUniversal, []byte{b})
}

// AppendRaw appends an already-encoded TLV (or sequence of TLVs) directly
// into the current level, without further wrapping. Used to splice a
// separately-built SEQUENCE (such as an already-encoded ScopedPDU) into a
// parent message.
func (e *Encoder) AppendRaw(b []byte) {
	e.append(b)
}

// Output returns the fully encoded byte stream. It is only valid once every
// Enter has a matching Leave.
func (e *Encoder) Output() []byte {
	return e.top().buf
}

func encodeTag(nr uint32, typ TagType, cls TagClass) []byte {
	if nr < 0x1F {
		return []byte{byte(cls) | byte(typ) | byte(nr)}
	}
	out := []byte{byte(cls) | byte(typ) | 0x1F}
	return append(out, encodeBase128(nr)...)
}

func encodeBase128(n uint32) []byte {
	if n == 0 {
		return []byte{0}
	}
	var rev []byte
	for n > 0 {
		rev = append(rev, byte(n&0x7F))
		n >>= 7
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	for i := 0; i < len(rev)-1; i++ {
		rev[i] |= 0x80
	}
	return rev
}

// encodeLength encodes n using short form when n < 128, else the minimum
// number of long-form octets.
func encodeLength(n int) []byte {
	if n < 128 {
		return []byte{byte(n)}
	}
	var bs []byte
	v := n
	for v > 0 {
		bs = append([]byte{byte(v & 0xFF)}, bs...)
		v >>= 8
	}
	return append([]byte{0x80 | byte(len(bs))}, bs...)
}

// encodeInteger returns the minimal two's-complement big-endian encoding of n.
func encodeInteger(n *big.Int) []byte {
	switch n.Sign() {
	case 0:
		return []byte{0x00}
	case 1:
		b := n.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	default:
		k := 1
		for {
			limit := new(big.Int).Lsh(big.NewInt(1), uint(8*k-1))
			limit.Neg(limit)
			if n.Cmp(limit) >= 0 {
				break
			}
			k++
		}
		mod := new(big.Int).Lsh(big.NewInt(1), uint(8*k))
		v := new(big.Int).Add(n, mod)
		b := v.Bytes()
		for len(b) < k {
			b = append([]byte{0x00}, b...)
		}
		return b
	}
}

func encodeOID(oid OID) ([]byte, error) {
	if len(oid) < 2 {
		return nil, syntaxErrorf("oid must have at least 2 components")
	}
	if oid[0] > 2 {
		return nil, syntaxErrorf("oid first component must be 0, 1 or 2")
	}
	if oid[0] < 2 && oid[1] > 39 {
		return nil, syntaxErrorf("oid second component out of range")
	}
	first := oid[0]*40 + oid[1]
	out := encodeBase128(first)
	for _, c := range oid[2:] {
		out = append(out, encodeBase128(c)...)
	}
	return out, nil
}
