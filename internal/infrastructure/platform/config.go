package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/retailops/backend/internal/domain/sync"
)

// ClientConfig holds the connection settings for one platform's API.
type ClientConfig struct {
	// Platform identifies which platform this client talks to
	Platform sync.Platform
	// BaseURL is the API base URL, without a trailing slash
	BaseURL string
	// APIKey identifies the integration to the platform
	APIKey string
	// APISecret signs requests; platforms that do not verify signatures
	// may leave it empty
	APISecret string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Errors for platform client configuration
var (
	ErrConfigInvalidPlatform = errors.New("platform: invalid platform in client config")
	ErrConfigMissingBaseURL  = errors.New("platform: base URL is required")
)

// Validate validates the client configuration and fills defaults
func (c *ClientConfig) Validate() error {
	if !c.Platform.IsValid() {
		return ErrConfigInvalidPlatform
	}
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// Sign generates the request signature: HMAC-SHA256 over
// method + path + timestamp, keyed with the API secret.
func (c *ClientConfig) Sign(method, path, timestamp string) string {
	var builder strings.Builder
	builder.WriteString(method)
	builder.WriteString(path)
	builder.WriteString(timestamp)

	h := hmac.New(sha256.New, []byte(c.APISecret))
	h.Write([]byte(builder.String()))
	return hex.EncodeToString(h.Sum(nil))
}
