package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"usergraph-portal/pkg/api"
)

// Timeout bounds each request with a deadline. The graph fetch carries its
// own tighter timeout inside the gateway; this is the outer guard for the
// whole handler.
//
// The handler runs against a buffered writer and its output reaches the
// client only when it finishes in time. Once the deadline fires the buffer
// is sealed, so a late handler write goes nowhere instead of racing the
// 408 on the shared ResponseWriter.
func Timeout(timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)
			buf := newBufferedWriter()
			done := make(chan struct{})

			go func() {
				defer func() {
					if err := recover(); err != nil {
						logger.Error("panic in request handler",
							zap.String("request_id", GetRequestID(r.Context())),
							zap.Any("panic", err),
						)
						if !buf.wrote() {
							api.Error(buf, http.StatusInternalServerError, "an internal error occurred")
						}
					}
					close(done)
				}()
				next.ServeHTTP(buf, r)
			}()

			select {
			case <-done:
				buf.flush(w)
			case <-ctx.Done():
				buf.seal()
				logger.Warn("request timed out",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("path", r.URL.Path),
				)
				api.Error(w, http.StatusRequestTimeout, "request timeout")
			}
		})
	}
}

// bufferedWriter captures a handler response until the timeout race is
// decided. All mutation is guarded so sealing and late handler writes
// cannot collide.
type bufferedWriter struct {
	mu          sync.Mutex
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
	sealed      bool
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed || b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return len(p), nil
	}
	b.wroteHeader = true
	return b.body.Write(p)
}

func (b *bufferedWriter) wrote() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wroteHeader
}

// seal drops all subsequent writes. Called when the deadline wins.
func (b *bufferedWriter) seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

// flush copies the buffered response to the real writer. Only called after
// the handler goroutine has finished.
func (b *bufferedWriter) flush(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range b.header {
		w.Header()[k] = v
	}
	w.WriteHeader(b.status)
	w.Write(b.body.Bytes())
}
