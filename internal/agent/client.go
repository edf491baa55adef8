package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request is the body sent to the reasoning service.
type Request struct {
	UserMessage string `json:"userMessage"`
}

// Client invokes the reasoning service. Invoke returns the raw reply envelope,
// a JSON object whose "value" field holds the reply text.
type Client interface {
	Invoke(ctx context.Context, text string) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode      string
	HTTPURL   string
	HTTPToken string
	Timeout   time.Duration
}

func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPClient(cfg.HTTPURL, cfg.HTTPToken, cfg.Timeout), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, fmt.Errorf("agent HTTP url is required for http mode")
		}
		return NewHTTPClient(cfg.HTTPURL, cfg.HTTPToken, cfg.Timeout), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported agent mode %q", cfg.Mode)
	}
}

// Describe names the backend a client talks to, for logs and health output.
func Describe(c Client) string {
	switch v := c.(type) {
	case *HTTPClient:
		return "http " + v.url
	case *MockClient:
		return "mock"
	default:
		return fmt.Sprintf("%T", c)
	}
}
