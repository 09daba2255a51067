package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmaloney/relay/internal/adapter"
	"github.com/dmaloney/relay/internal/adapterspec"
	"github.com/dmaloney/relay/internal/config"
	"github.com/dmaloney/relay/internal/logging"
	"github.com/dmaloney/relay/internal/orchestrator"
	"github.com/dmaloney/relay/internal/sessionlog"
)

// app carries the wired process state shared by all subcommands.
type app struct {
	log   *zap.Logger
	reg   *adapter.Registry
	store sessionlog.Store
	orch  *orchestrator.Orchestrator

	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "relay",
		Short:         "Route coding tasks across interchangeable agent backends",
		Long:          "relay dispatches prompts to CLI coding agents (Claude, Codex, Gemini, OpenCode, Qwen), failing over to the next backend when one times out or errors.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.wire()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "relay.yaml", "path to the executor config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the sqlite session log (empty keeps events in memory)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newExecCmd(a),
		newAgentsCmd(a),
		newSwitchCmd(a),
		newModeCmd(a),
		newCommandCmd(a),
		newSessionsCmd(a),
		newServeCmd(a),
	)
	return root
}

// wire builds the registry, session store and orchestrator from flags and
// the optional config file.
func (a *app) wire() error {
	a.log = logging.New(a.verbose)

	a.reg = adapter.NewRegistry()
	for _, spec := range adapterspec.Builtins() {
		if err := a.reg.Register(adapter.NewCLIAdapter(spec, a.log)); err != nil {
			return fmt.Errorf("register %s: %w", spec.Key, err)
		}
	}

	if a.dbPath != "" {
		store, err := sessionlog.OpenSQLite(a.dbPath)
		if err != nil {
			return fmt.Errorf("open session log: %w", err)
		}
		a.store = store
	} else {
		a.store = sessionlog.NewMemoryStore()
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	sel, err := config.ResolvePrimary(cfg)
	if err != nil {
		return err
	}

	a.orch, err = orchestrator.New(a.reg, a.store, a.log, orchestrator.Options{
		InitialAdapter: sel.AdapterKey,
		SelectionID:    sel.SelectionID,
		DefaultModel:   sel.Model,
	})
	return err
}
