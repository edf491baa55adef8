package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/ent0n29/voiceagent/internal/agent"
	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/interaction"
	"github.com/ent0n29/voiceagent/internal/logging"
	"github.com/ent0n29/voiceagent/internal/tui"
	"github.com/ent0n29/voiceagent/internal/voice"
)

func main() {
	var logPath string
	flag.StringVar(&logPath, "log", "", "write logs to this file (the terminal is owned by the UI)")
	flag.Parse()

	if err := run(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "voicetui: %v\n", err)
		os.Exit(1)
	}
}

func run(logPath string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := zerolog.Nop()
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger, err = logging.New(cfg.LogLevel, "json", f)
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	}

	client, err := agent.NewClient(agent.Config{
		Mode:      cfg.AgentMode,
		HTTPURL:   cfg.AgentHTTPURL,
		HTTPToken: cfg.AgentHTTPToken,
		Timeout:   cfg.AgentTimeout,
	})
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	logger.Info().Str("agent", agent.Describe(client)).Msg("starting terminal session")

	bridge := tui.NewBridge()
	platform := voice.NewConsolePlatform(cfg.MockSpeechRate, bridge.Progress)
	machine := interaction.NewMachine(platform, client, bridge, bridge, logger)
	if err := machine.Mount(); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	defer machine.Unmount()

	model := tui.New(machine, platform.Submit, bridge)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
