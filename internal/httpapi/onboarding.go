package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	VoiceProvider string            `json:"voice_provider"`
	AgentBackend  string            `json:"agent_backend"`
	Language      string            `json:"language"`
	Checks        []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, _ *http.Request) {
	voiceProvider := strings.ToLower(strings.TrimSpace(s.cfg.VoiceProvider))
	if voiceProvider == "" {
		voiceProvider = "remote"
	}

	checks := make([]onboardingCheck, 0, 4)
	switch voiceProvider {
	case "mock":
		checks = append(checks, onboardingCheck{
			ID:     "voice_provider",
			Status: "warn",
			Label:  "Voice backend is mock",
			Detail: fmt.Sprintf("Every capture hears %q.", s.cfg.MockUtterance),
			Fix:    "Set VOICE_PROVIDER=remote to use the browser's speech APIs.",
		})
	default:
		checks = append(checks, onboardingCheck{
			ID:     "voice_provider",
			Status: "ok",
			Label:  "Voice backend",
			Detail: "browser speech recognition and synthesis",
		})
	}
	checks = append(checks, s.agentChecks()...)

	respondJSON(w, http.StatusOK, onboardingStatusResponse{
		VoiceProvider: voiceProvider,
		AgentBackend:  s.agentBackend,
		Language:      s.cfg.VoiceLanguage,
		Checks:        checks,
	})
}

func (s *Server) agentChecks() []onboardingCheck {
	raw := strings.TrimSpace(s.cfg.AgentHTTPURL)
	if raw == "" {
		return []onboardingCheck{{
			ID:     "agent_endpoint",
			Status: "warn",
			Label:  "Agent endpoint",
			Detail: "AGENT_HTTP_URL is not set; replies are simulated.",
			Fix:    "Set AGENT_HTTP_URL to the reasoning service endpoint.",
		}}
	}

	checks := make([]onboardingCheck, 0, 2)
	if err := dialEndpoint(raw); err != nil {
		checks = append(checks, onboardingCheck{
			ID:     "agent_endpoint",
			Status: "error",
			Label:  "Agent endpoint",
			Detail: err.Error(),
			Fix:    "Check AGENT_HTTP_URL and that the reasoning service is reachable.",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "agent_endpoint",
			Status: "ok",
			Label:  "Agent endpoint",
			Detail: raw,
		})
	}
	if strings.TrimSpace(s.cfg.AgentHTTPToken) == "" {
		checks = append(checks, onboardingCheck{
			ID:     "agent_token",
			Status: "warn",
			Label:  "Agent token",
			Detail: "AGENT_HTTP_TOKEN is not set; requests are unauthenticated.",
		})
	}
	return checks
}

// dialEndpoint checks that the endpoint's host accepts TCP connections.
func dialEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	host := strings.TrimSpace(u.Host)
	if host == "" {
		return fmt.Errorf("host missing")
	}
	addr := host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}
	c, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
	if err != nil {
		return err
	}
	_ = c.Close()
	return nil
}
