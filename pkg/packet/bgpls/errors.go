// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"errors"
	"fmt"
)

// Structural errors. Any of these aborts the decode of the enclosing
// attribute or NLRI region.
var (
	ErrTruncatedHeader = errors.New("truncated TLV header")
	ErrTruncatedValue  = errors.New("truncated TLV value")
	ErrTLVOverrun      = errors.New("TLV length exceeds enclosing region")
)

// Per-field errors. The field is left unset and decoding continues.
var (
	ErrNonMultipleLength      = errors.New("length is not a multiple of the element size")
	ErrUnsupportedUnionLength = errors.New("unsupported length for length-discriminated TLV")
	ErrShapeMismatch          = errors.New("length does not match the TLV shape")
	ErrDuplicateTLV           = errors.New("duplicate TLV, last instance kept")
	ErrMissingDescriptor      = errors.New("mandatory node descriptor TLV missing")
	ErrUnknownNLRIType        = errors.New("unknown Link-State NLRI type")
)

// IsStructural reports whether err is one of the errors that abort a decode.
func IsStructural(err error) bool {
	return errors.Is(err, ErrTruncatedHeader) ||
		errors.Is(err, ErrTruncatedValue) ||
		errors.Is(err, ErrTLVOverrun)
}

// TLVError locates a decode error. It is returned for structural errors and
// collected as a warning for per-field errors.
type TLVError struct {
	Type   TLVType
	Offset int // absolute offset of the TLV header in the decoded buffer
	Err    error
}

func (e *TLVError) Error() string {
	if e.Type == 0 {
		return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("%s at offset %d: %v", e.Type, e.Offset, e.Err)
}

func (e *TLVError) Unwrap() error {
	return e.Err
}

// BGP NOTIFICATION codes used when a structural error is surfaced to the
// attribute parser (RFC 4271 section 4.5).
const (
	NotifErrCodeUpdateMessage          uint8 = 3
	NotifErrSubcodeMalformedAttr       uint8 = 1
	NotifErrSubcodeOptionalAttrError   uint8 = 9
	NotifErrSubcodeInvalidNetworkField uint8 = 10
)

// NotificationError carries the NOTIFICATION the BGP session should send to
// the peer that produced the offending update.
type NotificationError struct {
	Code    uint8
	Subcode uint8
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %d/%d: %v", e.Code, e.Subcode, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Status is the outcome class of a decode at the input boundary.
type Status uint8

const (
	StatusDecoded Status = iota
	StatusRecoverablePartial
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusDecoded:
		return "decoded"
	case StatusRecoverablePartial:
		return "partial"
	case StatusFatal:
		return "fatal"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Result is returned alongside every record decoded at the input boundary.
// Err is a *NotificationError when Status is StatusFatal.
type Result struct {
	Status   Status
	Warnings []*TLVError
	Err      error
}

func newResult(warnings []*TLVError, err error, subcode uint8) Result {
	switch {
	case err != nil:
		return Result{
			Status:   StatusFatal,
			Warnings: warnings,
			Err:      &NotificationError{Code: NotifErrCodeUpdateMessage, Subcode: subcode, Err: err},
		}
	case len(warnings) > 0:
		return Result{Status: StatusRecoverablePartial, Warnings: warnings}
	default:
		return Result{Status: StatusDecoded}
	}
}
