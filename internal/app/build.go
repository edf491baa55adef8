package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ent0n29/voiceagent/internal/agent"
	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/httpapi"
	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/session"
	"github.com/ent0n29/voiceagent/internal/voice"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     *session.Manager
	Orchestrator *voice.Orchestrator
	Agent        agent.Client
	Metrics      *observability.Metrics
	Voice        VoiceInfo

	// Cleanup should be called on shutdown to end live sessions.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	client, err := agent.NewClient(agent.Config{
		Mode:      cfg.AgentMode,
		HTTPURL:   cfg.AgentHTTPURL,
		HTTPToken: cfg.AgentHTTPToken,
		Timeout:   cfg.AgentTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("agent client init failed: %w", err)
	}

	voiceInfo, err := resolveVoice(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	orchestrator := voice.NewOrchestrator(sessions, client, metrics, logger, voiceInfo.Provider, voiceInfo.Mock)

	sessions.SetExpireHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		if orchestrator.Close(s.ID) {
			logger.Info().Str("session_id", s.ID).Msg("closed connection of expired session")
		}
	})
	sessions.StartJanitor(ctx, janitorInterval(cfg))

	api := httpapi.New(cfg, sessions, orchestrator, metrics, agent.Describe(client), logger)

	cleanup := func() error {
		for _, id := range orchestrator.Live() {
			orchestrator.Close(id)
		}
		return nil
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Agent:        client,
		Metrics:      metrics,
		Voice:        voiceInfo,
		Cleanup:      cleanup,
	}, nil
}
