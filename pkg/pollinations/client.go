package pollinations

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public keyless generation endpoint.
	DefaultBaseURL = "https://image.pollinations.ai"

	// DefaultTimeout bounds a single generation request. The free service
	// regularly takes 30-90s per image while the model warms up.
	DefaultTimeout = 120 * time.Second

	// DefaultImageSize is the square edge used for menu thumbnails.
	DefaultImageSize = 200
)

// Client issues generation requests against a Pollinations-compatible
// endpoint. It requires no API key.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client for the given endpoint. Empty baseURL and zero
// timeout fall back to the package defaults.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Timeout reports the per-request socket timeout the client enforces.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// requestURL percent-encodes the prompt into the path and attaches the
// generation parameters as query values.
func (c *Client) requestURL(prompt string, seed int64, width, height int) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(width))
	q.Set("height", strconv.Itoa(height))
	q.Set("seed", strconv.FormatInt(seed, 10))
	q.Set("nologo", "true")
	q.Set("enhance", "true")
	return c.baseURL + "/prompt/" + url.PathEscape(prompt) + "?" + q.Encode()
}
