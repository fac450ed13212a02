package model

import (
	"errors"
	"fmt"

	"xdao.co/catchat/chaterr"
)

type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrPrecondition   ErrorCode = "PRECONDITION"
	ErrTransport      ErrorCode = "TRANSPORT"
	ErrEncoding       ErrorCode = "ENCODING"
	ErrVerification   ErrorCode = "VERIFICATION"
	ErrClosed         ErrorCode = "CLOSED"
	ErrInternal       ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// ErrorOf projects err onto a CodedError. It returns nil for a nil err.
func ErrorOf(err error) *CodedError {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}
	code := ErrInternal
	switch chaterr.KindOf(err) {
	case chaterr.KindTransport:
		code = ErrTransport
	case chaterr.KindEncoding, chaterr.KindDecoding, chaterr.KindProtocolDecode:
		code = ErrEncoding
	case chaterr.KindVerification:
		code = ErrVerification
	case chaterr.KindPrecondition:
		code = ErrPrecondition
	}
	return NewError(code, err.Error())
}
