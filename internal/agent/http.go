package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxReplyBytes = 1 << 20

// HTTPClient forwards requests to a reasoning service over HTTP.
type HTTPClient struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPClient(url, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Invoke(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(Request{UserMessage: text})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("send request: %w", ctx.Err())
		}
		return "", &RemoteError{Kind: KindTransport, Retryable: true, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxReplyBytes))
	if err != nil {
		return "", &RemoteError{Kind: KindTransport, StatusCode: res.StatusCode, Retryable: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", &RemoteError{
			Kind:       KindApplication,
			StatusCode: res.StatusCode,
			Message:    extractMessage(body),
			Retryable:  retryableStatus(res.StatusCode),
		}
	}

	return unquoteEnvelope(body), nil
}

// unquoteEnvelope accepts the envelope either as a JSON object or as a JSON
// string holding the object, which is how string-returning RPC endpoints
// serialise it.
func unquoteEnvelope(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil {
			return inner
		}
	}
	return raw
}

func extractMessage(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		return messageFrom(obj)
	}

	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		for _, item := range list {
			if msg := messageFrom(item); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func messageFrom(obj map[string]any) string {
	for _, k := range []string{"message", "error_description", "error"} {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s := messageFrom(v); s != "" {
				return s
			}
		}
	}
	if body, ok := obj["body"].(map[string]any); ok {
		return messageFrom(body)
	}
	return ""
}
