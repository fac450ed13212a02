package chaterr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestIsKindThroughWrapping(t *testing.T) {
	base := Transport("dag/get", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("recover credential: %w", base)

	if !IsKind(wrapped, KindTransport) {
		t.Fatalf("expected KindTransport through fmt wrapping")
	}
	if IsKind(wrapped, KindDecoding) {
		t.Fatalf("unexpected KindDecoding")
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
	if got := KindOf(wrapped); got != KindTransport {
		t.Fatalf("KindOf: got %q want %q", got, KindTransport)
	}
}

func TestErrorString(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{New(KindPrecondition, "", "no address"), "Precondition: no address"},
		{New(KindVerification, "verify", "address mismatch"), "verify Verification: address mismatch"},
		{Decoding("dag/get", errors.New("bad json")), "dag/get Decoding: bad json"},
		{Wrap(KindEncoding, "dag/put", "marshal", errors.New("chan")), "dag/put Encoding: marshal: chan"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error(): got %q want %q", got, tc.want)
		}
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty kind for plain error")
	}
	var e *Error
	if e.Error() != "<nil>" || e.Unwrap() != nil {
		t.Fatalf("nil receiver must be safe")
	}
}
