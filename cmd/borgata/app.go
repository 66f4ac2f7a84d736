package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/mfontane/borgata/internal/bus"
	"github.com/mfontane/borgata/internal/capability"
	"github.com/mfontane/borgata/internal/config"
	"github.com/mfontane/borgata/internal/escalation"
	"github.com/mfontane/borgata/internal/orchestrator"
	"github.com/mfontane/borgata/internal/progress"
	"github.com/mfontane/borgata/internal/provider"
	"github.com/mfontane/borgata/internal/roster"
	"github.com/mfontane/borgata/internal/signals"
	"github.com/mfontane/borgata/internal/store"
)

// app wires the full stack for one CLI invocation.
type app struct {
	cfg       *config.Config
	db        *store.DB
	orch      *orchestrator.Orchestrator
	watcher   *signals.Watcher
	signalDir string
}

// newApp loads configuration, opens and migrates the store, registers
// providers, bootstraps the static roster, and starts the stop-signal
// watcher.
func newApp(needProviders bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = store.DefaultPath()
	}
	db, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	reg := capability.NewRegistry()
	resolver := provider.NewResolver()
	if needProviders {
		anthropic, err := provider.NewAnthropicProvider(provider.AnthropicConfig{
			Model:         cfg.Anthropic.Model,
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		resolver.Register(anthropic)
		if cfg.OpenAI.APIKey != "" {
			resolver.Register(provider.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase, cfg.OpenAI.Model))
		}
	}

	orch := orchestrator.New(db, bus.New(), escalation.NewManager(), progress.NewRegistry(),
		resolver, reg, orchestrator.Options{
			MaxAgentTurns: cfg.Orchestrator.MaxAgentTurns,
			MaxTokens:     cfg.Orchestrator.MaxTokens,
		})

	var org *roster.Roster
	if cfg.Orchestrator.RosterPath != "" {
		org, err = roster.Load(cfg.Orchestrator.RosterPath, reg)
	} else {
		org, err = roster.Default(reg)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	if created, err := org.Bootstrap(db); err != nil {
		db.Close()
		return nil, err
	} else if created {
		log.Printf("[app] bootstrapped static roster with %d agents", len(org.Agents))
	}

	signalDir := cfg.Orchestrator.SignalDir
	if signalDir == "" {
		signalDir = filepath.Join(filepath.Dir(storePath), "signals")
	}
	watcher, err := signals.NewWatcher(signalDir, orch.CancelOrchestration, orch.DeliverAnswer)
	if err != nil {
		log.Printf("[app] signal watcher unavailable: %v", err)
	}

	return &app{cfg: cfg, db: db, orch: orch, watcher: watcher, signalDir: signalDir}, nil
}

func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.db.Close()
}
