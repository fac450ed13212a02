package sessionrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/catchat/model"
	"xdao.co/catchat/session"
)

var codeOf = map[model.ErrorCode]codes.Code{
	model.ErrInvalidRequest: codes.InvalidArgument,
	model.ErrPrecondition:   codes.FailedPrecondition,
	model.ErrTransport:      codes.Unavailable,
	model.ErrEncoding:       codes.DataLoss,
	model.ErrVerification:   codes.Unauthenticated,
	model.ErrClosed:         codes.Aborted,
	model.ErrInternal:       codes.Internal,
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, session.ErrClosed) {
		return status.Error(codes.Aborted, err.Error())
	}
	coded := model.ErrorOf(err)
	code, ok := codeOf[coded.Code]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, coded.Message)
}

// mapRPC turns a gRPC status back into a *model.CodedError. Errors that
// carry no status are returned unchanged.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for code, c := range codeOf {
		if c == st.Code() {
			return model.NewError(code, st.Message())
		}
	}
	return err
}
