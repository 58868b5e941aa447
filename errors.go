package gosnmp

import "fmt"

// ErrTimeout is returned when a request exhausts its retry schedule without
// a matching response.
type ErrTimeout struct {
	RequestID int
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("snmp: request %d timed out", e.RequestID)
}

// ErrNoConnection is returned by client operations issued before Connect or
// after Close.
type ErrNoConnection struct{}

func (e *ErrNoConnection) Error() string { return "snmp: not connected" }

// ErrNoAuthParams is returned when a v3 operation is attempted before the
// engine discovery handshake has populated security parameters.
type ErrNoAuthParams struct{}

func (e *ErrNoAuthParams) Error() string { return "snmp: no usm security parameters available" }

// ErrTooManyRows is returned by Walk when the configured row cap is reached
// before the walk terminates naturally.
type ErrTooManyRows struct {
	Limit int
}

func (e *ErrTooManyRows) Error() string {
	return fmt.Sprintf("snmp: walk exceeded %d rows", e.Limit)
}

// DecodeError wraps a failure to decode a message, PDU or value, carrying
// the underlying cause.
type DecodeError struct {
	Context string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("snmp: decode error (%s): %v", e.Context, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecryptionError is returned when USM privacy decryption fails: malformed
// ciphertext length, a bad salt, or (for AES) a short ciphertext.
type DecryptionError struct {
	Msg string
}

func (e *DecryptionError) Error() string { return "snmp: decryption error: " + e.Msg }

// AuthV3Error reports a USM report PDU received in place of a response,
// identifying which of the six standard USM report conditions occurred.
type AuthV3Error struct {
	Reason AuthV3Reason
}

// AuthV3Reason enumerates the six USM report OIDs under 1.3.6.1.6.3.15.1.1.
type AuthV3Reason int

// The six USM report conditions, in OID suffix order (.1 through .6).
const (
	ReasonUnsupportedSecLevel AuthV3Reason = iota + 1
	ReasonNotInTimeWindow
	ReasonUnknownUserName
	ReasonUnknownEngineID
	ReasonWrongDigest
	ReasonDecryptionError
)

func (r AuthV3Reason) String() string {
	switch r {
	case ReasonUnsupportedSecLevel:
		return "usmStatsUnsupportedSecLevels"
	case ReasonNotInTimeWindow:
		return "usmStatsNotInTimeWindows"
	case ReasonUnknownUserName:
		return "usmStatsUnknownUserNames"
	case ReasonUnknownEngineID:
		return "usmStatsUnknownEngineIDs"
	case ReasonWrongDigest:
		return "usmStatsWrongDigests"
	case ReasonDecryptionError:
		return "usmStatsDecryptionErrors"
	default:
		return "usmStatsUnknown"
	}
}

func (e *AuthV3Error) Error() string {
	return "snmp: usm report: " + e.Reason.String()
}

// reportOIDReason maps the six well-known USM report OID suffixes to their
// AuthV3Reason, per original_source's _REPORT_OID_EXCEPTIONS table.
var reportOIDReason = map[string]AuthV3Reason{
	".1.3.6.1.6.3.15.1.1.1.0": ReasonUnsupportedSecLevel,
	".1.3.6.1.6.3.15.1.1.2.0": ReasonNotInTimeWindow,
	".1.3.6.1.6.3.15.1.1.3.0": ReasonUnknownUserName,
	".1.3.6.1.6.3.15.1.1.4.0": ReasonUnknownEngineID,
	".1.3.6.1.6.3.15.1.1.5.0": ReasonWrongDigest,
	".1.3.6.1.6.3.15.1.1.6.0": ReasonDecryptionError,
}

// StatusError reports a non-zero error-status on a GetResponse PDU, naming
// the varbind it points to via ErrorIndex (1-based, 1 <= ErrorIndex <=
// len(vbs)).
type StatusError struct {
	Status     Status
	ErrorIndex int
}

// Status is the error-status field of a GetResponse PDU.
type Status int

// The 18 standard SNMP error-status codes.
const (
	StatusNoError Status = iota
	StatusTooBig
	StatusNoSuchName
	StatusBadValue
	StatusReadOnly
	StatusGenErr
	StatusNoAccess
	StatusWrongType
	StatusWrongLength
	StatusWrongEncoding
	StatusWrongValue
	StatusNoCreation
	StatusInconsistentValue
	StatusResourceUnavailable
	StatusCommitFailed
	StatusUndoFailed
	StatusAuthorizationError
	StatusNotWritable
	StatusInconsistentName
)

var statusNames = map[Status]string{
	StatusNoError:             "noError",
	StatusTooBig:              "tooBig",
	StatusNoSuchName:          "noSuchName",
	StatusBadValue:            "badValue",
	StatusReadOnly:            "readOnly",
	StatusGenErr:              "genErr",
	StatusNoAccess:            "noAccess",
	StatusWrongType:           "wrongType",
	StatusWrongLength:         "wrongLength",
	StatusWrongEncoding:       "wrongEncoding",
	StatusWrongValue:          "wrongValue",
	StatusNoCreation:          "noCreation",
	StatusInconsistentValue:   "inconsistentValue",
	StatusResourceUnavailable: "resourceUnavailable",
	StatusCommitFailed:        "commitFailed",
	StatusUndoFailed:          "undoFailed",
	StatusAuthorizationError: "authorizationError",
	StatusNotWritable:         "notWritable",
	StatusInconsistentName:    "inconsistentName",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("snmp: %s at varbind %d", e.Status, e.ErrorIndex)
}
