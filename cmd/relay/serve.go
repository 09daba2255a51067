package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmaloney/relay/internal/config"
	"github.com/dmaloney/relay/internal/orchestrator"
	"github.com/dmaloney/relay/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with a live SSE event tail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The serve path rebuilds the orchestrator with a tee recorder
			// so every timeline event also reaches SSE subscribers.
			bcast := server.NewBroadcaster()

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			sel, err := config.ResolvePrimary(cfg)
			if err != nil {
				return err
			}
			orch, err := orchestrator.New(a.reg, server.NewTeeRecorder(a.store, bcast), a.log, orchestrator.Options{
				InitialAdapter: sel.AdapterKey,
				SelectionID:    sel.SelectionID,
				DefaultModel:   sel.Model,
			})
			if err != nil {
				return fmt.Errorf("wire orchestrator: %w", err)
			}

			srv := server.New(server.Config{Addr: addr}, orch, a.reg, a.store, bcast, a.log)
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7777", "listen address")
	return cmd
}
