package netkit

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/url"
)

func bodyReader(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return bytes.NewReader(body)
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// classifyTransportError maps a net/http transport-level error into the
// engine's closed taxonomy of connectivity error kinds.
func classifyTransportError(err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, "request timed out or was cancelled", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return NewError(KindTimeout, "request timed out", err)
		}
		err = urlErr.Unwrap()
	}

	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return NewError(KindSSLError, "TLS certificate verification failed", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewError(KindDNSFailure, "DNS lookup failed", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return NewError(KindConnectionRefused, "connection refused", err)
		}
		if opErr.Op == "read" || opErr.Op == "write" {
			return NewError(KindConnectionReset, "connection reset", err)
		}
	}

	return NewError(KindNoConnection, "transport call failed", err)
}
