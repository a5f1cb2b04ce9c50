// Package stream implements a streaming transport adapter: a pull-based
// byte-chunk source over an http.Response, used
// by SSE/WebSocket-style protocol frontends that cannot buffer the whole
// body. The engine itself never calls this package; frontends build a
// Source directly from an *http.Client and an *http.Request.
package stream

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/corexis/netkit"
)

// Source is a pull-based iterator over a response body's chunks. Next
// blocks until a chunk is available, the body is exhausted (io.EOF), or ctx
// is cancelled. Close releases the underlying transport connection.
type Source struct {
	resp   *http.Response
	reader *bufio.Reader
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// Open issues req against client and validates the response before
// returning a Source: a 2xx status is required, and when sse is true a
// text/event-stream response content type.
func Open(ctx context.Context, client *http.Client, req *http.Request, sse bool) (*Source, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	req = req.WithContext(streamCtx)

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, netkit.NewError(netkit.KindNoConnection, "stream request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, netkit.NewHTTPError(netkit.KindInvalidResponse, resp.StatusCode, "stream response was not 2xx: "+string(body))
	}

	if sse {
		ct := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "text/event-stream") {
			resp.Body.Close()
			cancel()
			return nil, netkit.NewError(netkit.KindInvalidResponse, "expected text/event-stream, got "+ct, nil)
		}
	}

	return &Source{resp: resp, reader: bufio.NewReader(resp.Body), ctx: streamCtx, cancel: cancel}, nil
}

// Next reads and returns the next chunk (a line, for line-delimited
// streams such as SSE or newline-delimited JSON). It returns io.EOF when
// the stream ends normally.
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	type result struct {
		line []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := s.reader.ReadBytes('\n')
		done <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return nil, netkit.NewError(netkit.KindCancelled, "stream read cancelled", ctx.Err())
	case <-s.ctx.Done():
		return nil, netkit.NewError(netkit.KindCancelled, "stream closed", s.ctx.Err())
	case r := <-done:
		if r.err != nil {
			if r.err == io.EOF && len(r.line) > 0 {
				return r.line, nil
			}
			return nil, r.err
		}
		return r.line, nil
	}
}

// Close releases the underlying transport connection. Safe to call more
// than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return s.resp.Body.Close()
}
