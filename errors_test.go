package netkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStringIncludesKindAndMessage(t *testing.T) {
	err := NewError(KindTimeout, "request timed out", nil)
	require.Equal(t, "netkit: Timeout: request timed out", err.Error())
}

func TestErrorStringIncludesWrappedCause(t *testing.T) {
	cause := errors.New("dial tcp: connect: connection refused")
	err := NewError(KindConnectionRefused, "dial failed", cause)
	require.Contains(t, err.Error(), "ConnectionRefused")
	require.Contains(t, err.Error(), "dial failed")
	require.Contains(t, err.Error(), "connection refused")
}

func TestErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(KindServerError, "", cause)
	require.Equal(t, cause, errors.Unwrap(err))
}

func TestAsErrorAndKindOfRecoverWrappedError(t *testing.T) {
	inner := NewError(KindNotFound, "missing", nil)
	wrapped := errors.Join(errors.New("context"), inner)

	ne, ok := AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, KindNotFound, ne.Kind)
	require.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOfNonNetkitErrorIsUnknown(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("plain error")))
}

func TestIsRecoverableClassifiesConnectivityAndServerErrors(t *testing.T) {
	for _, k := range []ErrorKind{KindNoConnection, KindTimeout, KindSSLError, KindDNSFailure, KindConnectionRefused, KindConnectionReset, KindServerError, KindRateLimited, KindServiceUnavailable} {
		require.True(t, k.IsRecoverable(), k.String())
	}
	for _, k := range []ErrorKind{KindNotFound, KindInvalidRequest, KindUnauthorized, KindCacheMiss} {
		require.False(t, k.IsRecoverable(), k.String())
	}
}

func TestIsConnectivityOnlyCoversTransportFailures(t *testing.T) {
	require.True(t, KindTimeout.IsConnectivity())
	require.False(t, KindServerError.IsConnectivity())
}

func TestIsAuthCoversAuthFamily(t *testing.T) {
	require.True(t, KindUnauthorized.IsAuth())
	require.True(t, KindTokenExpired.IsAuth())
	require.False(t, KindForbidden.IsAuth())
}

func TestClassifyStatusCodeMapsKnownStatuses(t *testing.T) {
	cases := map[int]ErrorKind{
		401: KindUnauthorized,
		403: KindForbidden,
		404: KindNotFound,
		429: KindRateLimited,
		400: KindClientError,
		418: KindClientError,
		500: KindServerError,
		503: KindServerError,
		600: KindInvalidResponse,
	}
	for status, want := range cases {
		got := classifyStatusCode(status, nil)
		require.Equal(t, want, got.Kind, "status %d", status)
		require.Equal(t, status, got.StatusCode)
	}
}

func TestClassifyStatusCodeAttachesBodySummaryForErrorStatuses(t *testing.T) {
	err := classifyStatusCode(500, []byte("internal failure"))
	require.Error(t, err.Err)
	require.Equal(t, "internal failure", err.Err.Error())
}

func TestClassifyStatusCodeTruncatesLongBody(t *testing.T) {
	body := make([]byte, 1000)
	for i := range body {
		body[i] = 'x'
	}
	err := classifyStatusCode(500, body)
	require.Len(t, err.Err.Error(), 256)
}

func TestNewMaxRetriesExceededWrapsLastCause(t *testing.T) {
	last := NewError(KindServerError, "boom", nil)
	err := NewMaxRetriesExceeded(3, last)
	require.Equal(t, KindMaxRetriesExceeded, err.Kind)
	require.Equal(t, 3, err.Attempts)
	require.Equal(t, last, errors.Unwrap(err))
}
