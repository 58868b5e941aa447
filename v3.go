package gosnmp

// This file assembles the pieces in message.go and usm.go into full v3
// message marshal/unmarshal, following the teacher's v3.go shape: build the
// scoped PDU, encrypt it if privacy is requested, serialize once with a
// zero authParameters placeholder, digest that serialization, then
// serialize a second time with the real digest in place.

// encodeMessageV3 builds the outer v3 SEQUENCE from its already-encoded
// pieces. scopedOrCipher is either a complete ScopedPDU SEQUENCE TLV
// (encrypted == false) or raw ciphertext bytes to be wrapped in an OCTET
// STRING (encrypted == true).
func encodeMessageV3(msgID, maxSize int32, flags MsgFlags, secModel int32, sec UsmSecurityParameters, scopedOrCipher []byte, encrypted bool) []byte {
	e := NewEncoder()
	e.Enter(uint32(Sequence), ClassUniversal)
	e.WriteInt64(int64(Version3))
	encodeMessageV3Prefix(e, msgID, maxSize, flags, secModel, sec)
	if encrypted {
		e.WriteOctetString(scopedOrCipher)
	} else {
		e.AppendRaw(scopedOrCipher)
	}
	_ = e.Leave()
	return e.Output()
}

func encryptScoped(proto PrivProtocol, privKey []byte, sec UsmSecurityParameters, salts *saltState, plaintext []byte) (ciphertext, saltBytes []byte, err error) {
	switch proto {
	case CBC56DES:
		return encryptDES(privKey, sec.AuthEngineBoots, salts.nextDESSalt(), plaintext)
	case CFB128AES:
		return encryptAES(privKey, sec.AuthEngineBoots, sec.AuthEngineTime, salts.nextAESSalt(), plaintext)
	default:
		return nil, nil, syntaxErrorf("unsupported priv protocol %d", proto)
	}
}

func decryptScoped(proto PrivProtocol, privKey []byte, sec UsmSecurityParameters, ciphertext []byte) ([]byte, error) {
	switch proto {
	case CBC56DES:
		return decryptDES(privKey, ciphertext, sec.PrivParameters)
	case CFB128AES:
		return decryptAES(privKey, sec.AuthEngineBoots, sec.AuthEngineTime, sec.PrivParameters, ciphertext)
	default:
		return nil, syntaxErrorf("unsupported priv protocol %d", proto)
	}
}

// MarshalV3 builds a complete v3 wire message for scoped, securing it per
// flags' security level with the given USM algorithms and keys.
func MarshalV3(msgID, maxSize int32, flags MsgFlags, secModel int32, sec UsmSecurityParameters, authProto AuthProtocol, authKey []byte, privProto PrivProtocol, privKey []byte, salts *saltState, scoped ScopedPDU) ([]byte, error) {
	level := flags.SecurityLevel()
	scopedBytes := encodeScopedPDU(scoped)
	encrypted := false

	if level == FlagAuthPriv {
		ct, saltBytes, err := encryptScoped(privProto, privKey, sec, salts, scopedBytes)
		if err != nil {
			return nil, err
		}
		sec.PrivParameters = saltBytes
		scopedBytes = ct
		encrypted = true
	} else {
		sec.PrivParameters = nil
	}

	if level == FlagNoAuthNoPriv {
		sec.AuthParameters = nil
		return encodeMessageV3(msgID, maxSize, flags, secModel, sec, scopedBytes, encrypted), nil
	}

	sec.AuthParameters = authParamPlaceholder(authProto)
	unsigned := encodeMessageV3(msgID, maxSize, flags, secModel, sec, scopedBytes, encrypted)
	digest, err := authenticate(authProto, authKey, unsigned)
	if err != nil {
		return nil, err
	}
	sec.AuthParameters = digest
	return encodeMessageV3(msgID, maxSize, flags, secModel, sec, scopedBytes, encrypted), nil
}

// UnmarshalV3 decodes, authenticates (if required) and decrypts (if
// required) a v3 wire message. The caller supplies the USM algorithms and
// keys it has configured for this engine/user, since those are never
// themselves carried on the wire (only the username and engine ID are).
func UnmarshalV3(data []byte, authProto AuthProtocol, authKey []byte, privProto PrivProtocol, privKey []byte) (MessageV3, error) {
	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		return MessageV3{}, &DecodeError{Context: "v3 envelope", Err: err}
	}
	_, verVal, err := d.Read()
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "version", Err: err}
	}
	if ver, _ := bigIntOrInt64(verVal); Version(ver) != Version3 {
		return MessageV3{}, &DecodeError{Context: "version", Err: syntaxErrorf("not a v3 message")}
	}

	if err := d.Enter(); err != nil {
		return MessageV3{}, &DecodeError{Context: "msgGlobalData", Err: err}
	}
	_, v, err := d.Read()
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "msgID", Err: err}
	}
	msgID, _ := bigIntOrInt64(v)

	_, v, err = d.Read()
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "msgMaxSize", Err: err}
	}
	maxSize, _ := bigIntOrInt64(v)

	_, v, err = d.Read()
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "msgFlags", Err: err}
	}
	flagBytes, _ := v.([]byte)
	if len(flagBytes) != 1 {
		return MessageV3{}, &DecodeError{Context: "msgFlags", Err: syntaxErrorf("msgFlags must be 1 byte")}
	}
	flags := MsgFlags(flagBytes[0])
	if !flags.Valid() {
		return MessageV3{}, &DecodeError{Context: "msgFlags", Err: syntaxErrorf("illegal msgFlags 0x%02x", flagBytes[0])}
	}

	_, v, err = d.Read()
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "msgSecurityModel", Err: err}
	}
	secModel, _ := bigIntOrInt64(v)
	if err := d.Leave(); err != nil {
		return MessageV3{}, err
	}

	_, v, err = d.Read()
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "msgSecurityParameters", Err: err}
	}
	secParamsRaw, _ := v.([]byte)
	sec, err := decodeUsmSecurityParameters(secParamsRaw)
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "usmSecurityParameters", Err: err}
	}

	level := flags.SecurityLevel()
	peekTag, err := d.Peek()
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "scopedPDU", Err: err}
	}

	var scopedRaw []byte
	encrypted := false
	if peekTag.Combined() == OctetString {
		encrypted = true
		_, v, err = d.Read()
		if err != nil {
			return MessageV3{}, &DecodeError{Context: "encryptedPDU", Err: err}
		}
		scopedRaw, _ = v.([]byte)
	} else {
		scopedRaw, err = d.ReadRaw()
		if err != nil {
			return MessageV3{}, &DecodeError{Context: "scopedPDU", Err: err}
		}
	}

	if level != FlagNoAuthNoPriv {
		gotDigest := append([]byte(nil), sec.AuthParameters...)
		zeroSec := sec
		zeroSec.AuthParameters = make([]byte, len(gotDigest))
		unsigned := encodeMessageV3(int32(msgID), int32(maxSize), flags, int32(secModel), zeroSec, scopedRaw, encrypted)
		ok, err := isAuthentic(authProto, authKey, unsigned, gotDigest)
		if err != nil {
			return MessageV3{}, err
		}
		if !ok {
			return MessageV3{}, &AuthV3Error{Reason: ReasonWrongDigest}
		}
	}

	plain := scopedRaw
	if encrypted {
		plain, err = decryptScoped(privProto, privKey, sec, scopedRaw)
		if err != nil {
			return MessageV3{}, err
		}
	}

	scoped, err := decodeScopedPDU(plain)
	if err != nil {
		return MessageV3{}, &DecodeError{Context: "scopedPDU body", Err: err}
	}

	return MessageV3{
		MsgID:         int32(msgID),
		MaxSize:       int32(maxSize),
		Flags:         flags,
		SecurityModel: int32(secModel),
		Security:      sec,
		Scoped:        scoped,
	}, nil
}

// BuildDiscoveryRequest builds the blank, unauthenticated, reportable Get
// used to trigger USM engine discovery: the agent is expected to respond
// with a Report carrying its authoritative engine ID/boots/time.
func BuildDiscoveryRequest(msgID, reqID int32) []byte {
	e := NewEncoder()
	_ = EncodePDU(e, TagGetRequest, PDU{RequestID: reqID})
	scoped := ScopedPDU{PDUBytes: e.Output()}
	return encodeMessageV3(msgID, 65507, FlagReportable|FlagNoAuthNoPriv, 3, UsmSecurityParameters{}, encodeScopedPDU(scoped), false)
}

// ParseDiscoveryReport decodes the engine-discovery Report; it carries no
// authentication or privacy, so no keys are required.
func ParseDiscoveryReport(data []byte) (MessageV3, error) {
	return UnmarshalV3(data, NoAuth, nil, NoPriv, nil)
}

// ReportReason maps a Report PDU's varbinds to one of the six well-known
// USM report conditions, if present.
func ReportReason(pdu PDU) (AuthV3Reason, bool) {
	for _, vb := range pdu.VarBinds {
		if reason, ok := reportOIDReason[vb.Name.String()]; ok {
			return reason, true
		}
	}
	return 0, false
}
