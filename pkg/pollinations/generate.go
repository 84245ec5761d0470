package pollinations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	// Decoders for the formats the service is known to return.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
)

// ErrorKind classifies a failed generation attempt.
type ErrorKind string

const (
	KindTimeout        ErrorKind = "timeout"
	KindConnectionErr  ErrorKind = "connection_error"
	KindHTTPError      ErrorKind = "http_error"
	KindInvalidPayload ErrorKind = "invalid_payload"
	KindDecodeError    ErrorKind = "decode_error"
	KindUnknown        ErrorKind = "unknown"
)

const (
	// minImageBytes is the smallest plausible image body; anything at or
	// below this is treated as an error page, not an image.
	minImageBytes = 500

	// previewBytes of a non-image body are kept for diagnostics.
	previewBytes = 300

	// debugURLChars bounds the URL stored in debug info for display.
	debugURLChars = 200
)

// Debug carries per-attempt diagnostics, populated on every outcome.
type Debug struct {
	URL           string `json:"url"`
	Seed          int64  `json:"seed"`
	StatusCode    int    `json:"status_code,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int    `json:"content_length,omitempty"`
	BodyPreview   string `json:"body_preview,omitempty"`
}

// Result is the classified outcome of a single generation attempt. Exactly
// one of Image (success) or Reason (failure) is set.
type Result struct {
	Image   image.Image
	Reason  ErrorKind
	Message string
	Elapsed time.Duration
	Debug   Debug
}

// OK reports whether the attempt produced a decoded image.
func (r Result) OK() bool {
	return r.Reason == ""
}

// Generate requests a single image for (prompt, seed) and classifies the
// outcome. It never returns a Go error: every transport, protocol, and
// decode failure is folded into the Result so a batch can carry on.
func (c *Client) Generate(ctx context.Context, prompt string, seed int64, width, height int) Result {
	if width <= 0 {
		width = DefaultImageSize
	}
	if height <= 0 {
		height = DefaultImageSize
	}

	start := time.Now()
	requestURL := c.requestURL(prompt, seed, width, height)
	debug := Debug{URL: truncate(requestURL, debugURLChars), Seed: seed}

	fail := func(kind ErrorKind, msg string) Result {
		c.logger.Warn("generation attempt failed",
			zap.Int64("seed", seed),
			zap.String("kind", string(kind)),
			zap.String("message", msg),
			zap.Duration("elapsed", time.Since(start)),
		)
		return Result{Reason: kind, Message: msg, Elapsed: time.Since(start), Debug: debug}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fail(KindUnknown, fmt.Sprintf("failed to create request: %v", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind, msg := classifyTransportError(err, c.httpClient.Timeout)
		return fail(kind, msg)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind, msg := classifyTransportError(err, c.httpClient.Timeout)
		return fail(kind, msg)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "unknown"
	}
	debug.StatusCode = resp.StatusCode
	debug.ContentType = contentType
	debug.ContentLength = len(body)

	if resp.StatusCode != http.StatusOK {
		return fail(KindHTTPError, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	if !strings.Contains(contentType, "image") || len(body) <= minImageBytes {
		debug.BodyPreview = previewOf(body)
		return fail(KindInvalidPayload,
			fmt.Sprintf("got HTTP 200 but content is not an image (type: %s, size: %dB)", contentType, len(body)))
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		debug.BodyPreview = previewOf(body)
		return fail(KindDecodeError, fmt.Sprintf("failed to decode image body: %v", err))
	}

	elapsed := time.Since(start)
	c.logger.Debug("generation attempt succeeded",
		zap.Int64("seed", seed),
		zap.String("format", format),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", elapsed),
	)
	return Result{Image: img, Elapsed: elapsed, Debug: debug}
}

// classifyTransportError maps a transport failure onto the error taxonomy.
// Timeouts take priority over connection errors; everything else is unknown.
func classifyTransportError(err error, timeout time.Duration) (ErrorKind, string) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return KindTimeout, fmt.Sprintf("timed out after %s - service may be overloaded", timeout)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnectionErr, "connection failed: " + truncate(opErr.Error(), 150)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnectionErr, "connection failed: " + truncate(dnsErr.Error(), 150)
	}
	return KindUnknown, truncate(err.Error(), 150)
}

// previewOf renders the start of a non-image body for diagnostics, replacing
// invalid UTF-8 so the preview is always printable.
func previewOf(body []byte) string {
	preview := body
	if len(preview) > previewBytes {
		preview = preview[:previewBytes]
	}
	return strings.ToValidUTF8(string(preview), string(utf8.RuneError))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
