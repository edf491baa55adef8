package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no reasoning service is configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Invoke(ctx context.Context, text string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	payload, err := json.Marshal(map[string]string{"value": buildMockReply(text)})
	if err != nil {
		return "", fmt.Errorf("marshal mock reply: %w", err)
	}
	return string(payload), nil
}

func buildMockReply(text string) string {
	base := strings.TrimSpace(text)
	if base == "" {
		return ""
	}
	return fmt.Sprintf("I heard you: %s", base)
}
