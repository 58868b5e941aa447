package gosnmp

// Version is the SNMP message version field.
type Version int

// The three supported message versions.
const (
	Version1  Version = 0
	Version2c Version = 1
	Version3  Version = 3
)

// MsgFlags is the single-byte msgFlags field of a v3 header, restricted by
// RFC 3414 to 0x00 (noAuthNoPriv), 0x01 (authNoPriv) and 0x03 (authPriv);
// bit 0x04 additionally marks the message as reportable.
type MsgFlags byte

// The legal msgFlags values.
const (
	FlagNoAuthNoPriv MsgFlags = 0x00
	FlagAuthNoPriv   MsgFlags = 0x01
	FlagAuthPriv     MsgFlags = 0x03
	FlagReportable   MsgFlags = 0x04
)

// SecurityLevel reports the authentication/privacy level implied by flags,
// ignoring the reportable bit.
func (f MsgFlags) SecurityLevel() MsgFlags {
	return f & 0x03
}

// Valid reports whether f uses only the bits RFC 3414 defines.
func (f MsgFlags) Valid() bool {
	level := f &^ FlagReportable
	return level == FlagNoAuthNoPriv || level == FlagAuthNoPriv || level == FlagAuthPriv
}

// Message is a decoded SNMPv1/v2c envelope: version, community, and PDU.
type Message struct {
	Version   Version
	Community string
	PDUTag    Tag
	PDU       PDU
}

// EncodeMessage builds a full v1/v2c wire message carrying pdu under the
// given implicit PDU tag number.
func EncodeMessage(version Version, community string, pduNr uint32, pdu PDU) []byte {
	e := NewEncoder()
	e.Enter(uint32(Sequence), ClassUniversal)
	e.WriteInt64(int64(version))
	e.WriteOctetString([]byte(community))
	_ = EncodePDU(e, pduNr, pdu)
	_ = e.Leave()
	return e.Output()
}

// EncodeBulkMessage builds a full v1/v2c wire message carrying a
// GetBulkRequest PDU.
func EncodeBulkMessage(version Version, community string, pdu BulkPDU) []byte {
	e := NewEncoder()
	e.Enter(uint32(Sequence), ClassUniversal)
	e.WriteInt64(int64(version))
	e.WriteOctetString([]byte(community))
	_ = EncodeBulkPDU(e, pdu)
	_ = e.Leave()
	return e.Output()
}

// DecodeMessage decodes a v1/v2c envelope. The caller should first peek the
// version field (PeekVersion) to route v3 messages to UnmarshalV3
// instead.
func DecodeMessage(data []byte) (Message, error) {
	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		return Message{}, &DecodeError{Context: "envelope", Err: err}
	}
	_, verVal, err := d.Read()
	if err != nil {
		return Message{}, &DecodeError{Context: "version", Err: err}
	}
	ver, _ := bigIntOrInt64(verVal)

	_, commVal, err := d.Read()
	if err != nil {
		return Message{}, &DecodeError{Context: "community", Err: err}
	}
	commBytes, _ := commVal.([]byte)

	tag, pdu, err := decodePDUFrom(d)
	if err != nil {
		return Message{}, err
	}
	return Message{Version: Version(ver), Community: string(commBytes), PDUTag: tag, PDU: pdu}, nil
}

// PeekVersion reads only the version field of a message without validating
// or consuming the rest of it, so a transport can route v3 vs v1/v2c
// decoding before doing the (potentially expensive) full decode.
func PeekVersion(data []byte) (Version, error) {
	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		return 0, err
	}
	_, verVal, err := d.Read()
	if err != nil {
		return 0, err
	}
	ver, _ := bigIntOrInt64(verVal)
	return Version(ver), nil
}

// PeekRequestID extracts only the request-id field of a v1/v2c message,
// without requiring error-status/error-index/varbinds to decode
// successfully. Transport demultiplexing depends on this succeeding even
// for malformed responses, so a garbled varbind doesn't strand a pending
// request until it times out.
func PeekRequestID(data []byte) (int32, error) {
	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		return 0, err
	}
	if _, _, err := d.Read(); err != nil { // version
		return 0, err
	}
	if _, _, err := d.Read(); err != nil { // community
		return 0, err
	}
	if err := d.Enter(); err != nil { // pdu
		return 0, err
	}
	_, v, err := d.Read()
	if err != nil {
		return 0, err
	}
	rid, ok := bigIntOrInt64(v)
	if !ok {
		return 0, syntaxErrorf("request-id is not an integer")
	}
	return int32(rid), nil
}

// PeekMsgID extracts only the msgID field of a v3 message. msgID lives in
// msgGlobalData, ahead of (and never encrypted with) the security
// parameters and scoped PDU, so it can always be read for demultiplexing
// regardless of whether the message authenticates or decrypts.
func PeekMsgID(data []byte) (int32, error) {
	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		return 0, err
	}
	if _, _, err := d.Read(); err != nil { // version
		return 0, err
	}
	if err := d.Enter(); err != nil { // msgGlobalData
		return 0, err
	}
	_, v, err := d.Read()
	if err != nil {
		return 0, err
	}
	id, ok := bigIntOrInt64(v)
	if !ok {
		return 0, syntaxErrorf("msgID is not an integer")
	}
	return int32(id), nil
}

// UsmSecurityParameters is the USM SecurityParameters SEQUENCE embedded
// (as an OCTET STRING) in a v3 header: engine ID/boots/time, username, and
// the authentication digest / privacy salt placeholders.
type UsmSecurityParameters struct {
	AuthEngineID    []byte
	AuthEngineBoots int32
	AuthEngineTime  int32
	UserName        string
	AuthParameters  []byte
	PrivParameters  []byte
}

// Clone returns a deep copy whose byte slices do not alias p's.
func (p UsmSecurityParameters) Clone() UsmSecurityParameters {
	c := p
	c.AuthEngineID = append([]byte(nil), p.AuthEngineID...)
	c.AuthParameters = append([]byte(nil), p.AuthParameters...)
	c.PrivParameters = append([]byte(nil), p.PrivParameters...)
	return c
}

func encodeUsmSecurityParameters(p UsmSecurityParameters) []byte {
	e := NewEncoder()
	e.Enter(uint32(Sequence), ClassUniversal)
	e.WriteOctetString(p.AuthEngineID)
	e.WriteInt64(int64(p.AuthEngineBoots))
	e.WriteInt64(int64(p.AuthEngineTime))
	e.WriteOctetString([]byte(p.UserName))
	e.WriteOctetString(p.AuthParameters)
	e.WriteOctetString(p.PrivParameters)
	_ = e.Leave()
	return e.Output()
}

func decodeUsmSecurityParameters(data []byte) (UsmSecurityParameters, error) {
	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		return UsmSecurityParameters{}, err
	}
	var p UsmSecurityParameters
	_, v, err := d.Read()
	if err != nil {
		return p, err
	}
	p.AuthEngineID, _ = v.([]byte)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	boots, _ := bigIntOrInt64(v)
	p.AuthEngineBoots = int32(boots)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	t, _ := bigIntOrInt64(v)
	p.AuthEngineTime = int32(t)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	user, _ := v.([]byte)
	p.UserName = string(user)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	p.AuthParameters, _ = v.([]byte)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	p.PrivParameters, _ = v.([]byte)

	if err := d.Leave(); err != nil {
		return p, err
	}
	return p, nil
}

// ScopedPDU is the (possibly encrypted) inner payload of a v3 message: the
// authoritative engine ID, the context name, and the fully-encoded PDU (an
// ordinary PDU or a BulkPDU, whichever the caller built) as a raw TLV.
// Carrying PDUBytes rather than a typed PDU lets a single encode/decode
// path serve both Get/GetNext/GetResponse/Report and GetBulkRequest.
type ScopedPDU struct {
	ContextEngineID []byte
	ContextName     string
	PDUBytes        []byte
}

func encodeScopedPDU(s ScopedPDU) []byte {
	e := NewEncoder()
	e.Enter(uint32(Sequence), ClassUniversal)
	e.WriteOctetString(s.ContextEngineID)
	e.WriteOctetString([]byte(s.ContextName))
	e.AppendRaw(s.PDUBytes)
	_ = e.Leave()
	return e.Output()
}

func decodeScopedPDU(data []byte) (ScopedPDU, error) {
	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		return ScopedPDU{}, err
	}
	_, v, err := d.Read()
	if err != nil {
		return ScopedPDU{}, err
	}
	engineID, _ := v.([]byte)

	_, v, err = d.Read()
	if err != nil {
		return ScopedPDU{}, err
	}
	ctxName, _ := v.([]byte)

	pduBytes, err := d.ReadRaw()
	if err != nil {
		return ScopedPDU{}, err
	}
	return ScopedPDU{ContextEngineID: engineID, ContextName: string(ctxName), PDUBytes: pduBytes}, nil
}

// PeekPDUTag returns the wire tag number of a raw, already-encoded PDU
// (such as ScopedPDU.PDUBytes), without decoding its body.
func PeekPDUTag(pduBytes []byte) (uint32, error) {
	d := NewDecoder(pduBytes)
	tag, err := d.Peek()
	if err != nil {
		return 0, err
	}
	return tag.Nr, nil
}

// MessageV3 is a fully decoded (and, if encrypted, already decrypted) v3
// message.
type MessageV3 struct {
	MsgID         int32
	MaxSize       int32
	Flags         MsgFlags
	SecurityModel int32
	Security      UsmSecurityParameters
	Scoped        ScopedPDU
}

// encodeMessageV3Prefix appends the v3 header and security-parameters
// fields (everything after the version and before the scoped PDU /
// encrypted payload) into the message SEQUENCE the caller has entered.
func encodeMessageV3Prefix(e *Encoder, msgID, maxSize int32, flags MsgFlags, secModel int32, sec UsmSecurityParameters) {
	e.Enter(uint32(Sequence), ClassUniversal)
	e.WriteInt64(int64(msgID))
	e.WriteInt64(int64(maxSize))
	e.WriteOctetString([]byte{byte(flags)})
	e.WriteInt64(int64(secModel))
	_ = e.Leave()
	e.WriteOctetString(encodeUsmSecurityParameters(sec))
}
