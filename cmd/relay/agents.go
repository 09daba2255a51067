package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmaloney/relay/internal/adapterspec"
	"github.com/dmaloney/relay/internal/orchestrator"
)

func newAgentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agent backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			active, _ := a.orch.Active()
			for _, key := range adapterspec.FallbackOrder() {
				if _, ok := a.reg.Get(key); !ok {
					continue
				}
				marker := " "
				if key == active {
					marker = "*"
				}
				status := ""
				if spec, ok := adapterspec.Builtin(key); ok && adapterspec.Disabled(spec) {
					status = " (disabled)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\n", marker, key, status)
			}
			return nil
		},
	}
}

func newSwitchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <agent>",
		Short: "Change the active agent backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.orch.Switch(cmd.Context(), args[0]); err != nil {
				return err
			}
			active, _ := a.orch.Active()
			fmt.Fprintf(cmd.OutOrStdout(), "active agent: %s\n", active)
			return nil
		},
	}
}

func newModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mode [ask|agent|plan]",
		Short: "Show or set the default interaction mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), string(a.orch.Mode()))
				return nil
			}
			if err := a.orch.SetMode(orchestrator.Mode(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mode: %s\n", args[0])
			return nil
		},
	}
}

func newCommandCmd(a *app) *cobra.Command {
	var agent string
	cmd := &cobra.Command{
		Use:   "command <cmd> [args...]",
		Short: "Forward a backend-native slash command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.orch.ExecSdkCommand(cmd.Context(), args[0], strings.Join(args[1:], " "), agent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "target agent (default: active)")
	return cmd
}

func newSessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded session ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
