package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig controls response compression. Skip lets callers exempt
// individual routes; Threshold is the minimum body size, in bytes, worth
// compressing. Assessment payloads routinely exceed it, most envelopes do not.
type BrotliConfig struct {
	Quality   int
	Skip      func(c *gin.Context) bool
	Threshold int
}

const defaultCompressThreshold = 1024

// compressedWriter holds the body back until it crosses the threshold, then
// commits to brotli. Small responses go out uncompressed.
type compressedWriter struct {
	gin.ResponseWriter
	br        *brotli.Writer
	pending   []byte
	threshold int
	commit    sync.Once
	committed bool
}

func (w *compressedWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	if len(w.pending) < w.threshold {
		return len(p), nil
	}

	w.commit.Do(func() {
		w.committed = true
		w.ResponseWriter.Header().Set("Content-Encoding", "br")
		w.ResponseWriter.Header().Del("Content-Length")
	})
	n, err := w.br.Write(w.pending)
	w.pending = w.pending[:0]
	return n, err
}

func (w *compressedWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush satisfies http.Flusher for streaming handlers. Anything still
// pending goes out uncompressed before the flush is forwarded.
func (w *compressedWriter) Flush() {
	if len(w.pending) > 0 {
		_, _ = w.ResponseWriter.Write(w.pending)
		w.pending = w.pending[:0]
	}
	w.ResponseWriter.Flush()
}

func (w *compressedWriter) drain() error {
	if len(w.pending) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.pending)
	w.pending = w.pending[:0]
	return err
}

// Brotli compresses responses for clients that advertise br support.
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(BrotliConfig{Quality: brotli.DefaultCompression})
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < 0 || cfg.Quality > 11 {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultCompressThreshold
	}

	return func(c *gin.Context) {
		if isStreamingRequest(c) {
			c.Next()
			return
		}
		if cfg.Skip != nil && cfg.Skip(c) {
			c.Next()
			return
		}
		if !clientAcceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		w := &compressedWriter{
			ResponseWriter: c.Writer,
			threshold:      cfg.Threshold,
			br:             brotli.NewWriterLevel(c.Writer, cfg.Quality),
		}

		defer func() {
			if err := w.drain(); err != nil {
				_ = c.Error(err)
			}
			if w.committed {
				w.br.Close()
			}
		}()

		c.Writer = w
		c.Next()
	}
}

// isStreamingRequest reports whether the request expects an unbuffered
// response. The attempt clock channel rides a WebSocket upgrade, and the
// handshake breaks if the writer is wrapped.
func isStreamingRequest(c *gin.Context) bool {
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return false
}

func clientAcceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
