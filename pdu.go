package gosnmp

import "math/big"

// PDU tag numbers (RFC 3416 §3), used as the context-class implicit tag on
// the wire: byte value = ClassContext | TypeConstructed | nr.
const (
	TagGetRequest     uint32 = 0
	TagGetNextRequest uint32 = 1
	TagGetResponse    uint32 = 2
	TagSetRequest     uint32 = 3
	TagGetBulkRequest uint32 = 5
	TagInformRequest  uint32 = 6
	TagTrapV2         uint32 = 7
	TagReport         uint32 = 8
)

// PDU is the common frame shape shared by GetRequest, GetNextRequest,
// GetResponse and Report: a request ID, an error-status/error-index pair
// (always zero on outgoing requests), and a VarBindList.
type PDU struct {
	RequestID   int32
	ErrorStatus Status
	ErrorIndex  int
	VarBinds    []VariableBinding
}

// BulkPDU is the GetBulkRequest frame shape: non_repeaters/max_repetitions
// in place of error-status/error-index.
type BulkPDU struct {
	RequestID      int32
	NonRepeaters   int
	MaxRepetitions int
	VarBinds       []VariableBinding
}

func encodeVarBindList(e *Encoder, vbs []VariableBinding) error {
	e.Enter(uint32(Sequence), ClassUniversal)
	for _, vb := range vbs {
		e.Enter(uint32(Sequence), ClassUniversal)
		if err := e.WriteOID(vb.Name); err != nil {
			return err
		}
		if err := encodeValue(e, vb.Value); err != nil {
			return err
		}
		if err := e.Leave(); err != nil {
			return err
		}
	}
	return e.Leave()
}

func decodeVarBindList(d *Decoder) ([]VariableBinding, error) {
	if err := d.Enter(); err != nil {
		return nil, err
	}
	var vbs []VariableBinding
	for !d.EOF() {
		if err := d.Enter(); err != nil {
			return nil, err
		}
		_, nameVal, err := d.Read()
		if err != nil {
			return nil, err
		}
		oid, ok := nameVal.(OID)
		if !ok {
			return nil, syntaxErrorf("varbind name is not an OID")
		}
		tag, value, err := d.Read()
		if err != nil {
			return nil, err
		}
		vbs = append(vbs, VariableBinding{Name: oid, Tag: tag, Value: value})
		if err := d.Leave(); err != nil {
			return nil, err
		}
	}
	if err := d.Leave(); err != nil {
		return nil, err
	}
	return vbs, nil
}

// EncodePDU appends a PDU with the given implicit tag number (one of the
// Tag* constants above) into e.
func EncodePDU(e *Encoder, pduNr uint32, pdu PDU) error {
	e.Enter(pduNr, ClassContext)
	e.WriteInt64(int64(pdu.RequestID))
	e.WriteInt64(int64(pdu.ErrorStatus))
	e.WriteInt64(int64(pdu.ErrorIndex))
	if err := encodeVarBindList(e, pdu.VarBinds); err != nil {
		return err
	}
	return e.Leave()
}

// EncodeBulkPDU appends a GetBulkRequest PDU into e.
func EncodeBulkPDU(e *Encoder, pdu BulkPDU) error {
	e.Enter(TagGetBulkRequest, ClassContext)
	e.WriteInt64(int64(pdu.RequestID))
	e.WriteInt64(int64(pdu.NonRepeaters))
	e.WriteInt64(int64(pdu.MaxRepetitions))
	if err := encodeVarBindList(e, pdu.VarBinds); err != nil {
		return err
	}
	return e.Leave()
}

func bigIntOrInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case *big.Int:
		return n.Int64(), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// DecodePDU decodes a Get/GetNext/GetResponse/Report PDU from data,
// returning its wire tag alongside the decoded PDU. The request ID is
// always extracted and set on pdu even when a later field fails to decode,
// so a caller can still demultiplex the response to its pending request
// before surfacing the error.
func DecodePDU(data []byte) (tag Tag, pdu PDU, err error) {
	return decodePDUFrom(NewDecoder(data))
}

func decodePDUFrom(d *Decoder) (tag Tag, pdu PDU, err error) {
	tag, err = d.Peek()
	if err != nil {
		return
	}
	if err = d.Enter(); err != nil {
		return
	}
	_, ridVal, e := d.Read()
	if e != nil {
		err = &DecodeError{Context: "request-id", Err: e}
		return
	}
	rid, ok := bigIntOrInt64(ridVal)
	if !ok {
		err = &DecodeError{Context: "request-id", Err: syntaxErrorf("request-id is not an integer")}
		return
	}
	pdu.RequestID = int32(rid)

	_, esVal, e := d.Read()
	if e != nil {
		err = &DecodeError{Context: "error-status", Err: e}
		return
	}
	es, _ := bigIntOrInt64(esVal)
	pdu.ErrorStatus = Status(es)

	_, eiVal, e := d.Read()
	if e != nil {
		err = &DecodeError{Context: "error-index", Err: e}
		return
	}
	ei, _ := bigIntOrInt64(eiVal)
	pdu.ErrorIndex = int(ei)

	vbs, e := decodeVarBindList(d)
	if e != nil {
		err = &DecodeError{Context: "varbinds", Err: e}
		return
	}
	pdu.VarBinds = vbs
	return tag, pdu, nil
}

// DecodeBulkPDU decodes a GetBulkRequest PDU from data.
func DecodeBulkPDU(data []byte) (pdu BulkPDU, err error) {
	return decodeBulkPDUFrom(NewDecoder(data))
}

func decodeBulkPDUFrom(d *Decoder) (pdu BulkPDU, err error) {
	if err = d.Enter(); err != nil {
		return
	}
	_, ridVal, e := d.Read()
	if e != nil {
		err = &DecodeError{Context: "request-id", Err: e}
		return
	}
	rid, _ := bigIntOrInt64(ridVal)
	pdu.RequestID = int32(rid)

	_, nrVal, e := d.Read()
	if e != nil {
		err = &DecodeError{Context: "non-repeaters", Err: e}
		return
	}
	nr, _ := bigIntOrInt64(nrVal)
	pdu.NonRepeaters = int(nr)

	_, mrVal, e := d.Read()
	if e != nil {
		err = &DecodeError{Context: "max-repetitions", Err: e}
		return
	}
	mr, _ := bigIntOrInt64(mrVal)
	pdu.MaxRepetitions = int(mr)

	vbs, e := decodeVarBindList(d)
	if e != nil {
		err = &DecodeError{Context: "varbinds", Err: e}
		return
	}
	pdu.VarBinds = vbs
	return pdu, nil
}

// StatusErrorFor returns a *StatusError for pdu if its error-status is
// non-zero, else nil. ErrorIndex is clamped into [1, len(vbs)] per the
// module's standardized bounds (see Design Notes).
func StatusErrorFor(pdu PDU) error {
	if pdu.ErrorStatus == StatusNoError {
		return nil
	}
	idx := pdu.ErrorIndex
	if idx < 1 {
		idx = 1
	}
	if n := len(pdu.VarBinds); n > 0 && idx > n {
		idx = n
	}
	return &StatusError{Status: pdu.ErrorStatus, ErrorIndex: idx}
}
