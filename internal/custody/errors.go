package custody

import "errors"

// Kind groups workflow errors by how a caller should react to them.
type Kind int

const (
	// KindInternal is an infrastructure failure outside the taxonomy.
	KindInternal Kind = iota
	// KindValidation means the request itself is wrong; fix and resubmit.
	KindValidation
	// KindConcurrency means another commit got there first; reload and retry.
	KindConcurrency
	// KindNumbering means no certificate number could be issued.
	KindNumbering
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConcurrency:
		return "concurrency"
	case KindNumbering:
		return "numbering"
	default:
		return "internal"
	}
}

// Error is a workflow rejection. Compare with errors.Is against the
// exported values below.
type Error struct {
	Code string
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Rejections, in the order the validation chain checks them.
var (
	ErrEquipmentNotFound    = &Error{Code: "EquipmentNotFound", Kind: KindValidation, msg: "equipment not found"}
	ErrInvalidReceivingUnit = &Error{Code: "InvalidReceivingUnit", Kind: KindValidation, msg: "receiving unit is not a recognized unit"}
	ErrNoLocationChange     = &Error{Code: "NoLocationChange", Kind: KindValidation, msg: "receiving unit is the current custodian"}
	ErrMissingDetails       = &Error{Code: "MissingDetails", Kind: KindValidation, msg: "details are required"}
	ErrMissingRecorder      = &Error{Code: "MissingRecorder", Kind: KindValidation, msg: "recorder name is required"}

	ErrConcurrentModification = &Error{Code: "ConcurrentModification", Kind: KindConcurrency, msg: "custodian changed concurrently, reload and retry"}
	ErrDuplicateCertificate   = &Error{Code: "DuplicateCertificate", Kind: KindConcurrency, msg: "certificate number already issued"}
	ErrLedgerBusy             = &Error{Code: "LedgerBusy", Kind: KindConcurrency, msg: "ledger is busy with other transfers, retry"}

	ErrNumberingUnavailable = &Error{Code: "NumberingUnavailable", Kind: KindNumbering, msg: "certificate numbering unavailable"}
)

// Classify reports the Kind of err. Errors outside the taxonomy are internal.
func Classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Code returns the taxonomy code of err, or "Internal".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "Internal"
}
