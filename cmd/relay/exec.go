package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/dmaloney/relay/internal/orchestrator"
)

func newExecCmd(a *app) *cobra.Command {
	var (
		mode     string
		timeout  time.Duration
		session  string
		model    string
		cwd      string
		attach   []string
		isolated bool
	)
	cmd := &cobra.Command{
		Use:   "exec <message>",
		Short: "Execute a prompt against the active agent, with failover",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attachments, err := expandAttachments(attach)
			if err != nil {
				return err
			}
			resp, err := a.orch.Execute(cmd.Context(), orchestrator.Request{
				Message:       strings.Join(args, " "),
				SessionID:     session,
				Mode:          orchestrator.Mode(mode),
				Timeout:       timeout,
				Attachments:   attachments,
				Model:         model,
				Cwd:           cwd,
				ForceIsolated: isolated,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.FinalResponse)
			if !resp.OK {
				return fmt.Errorf("execution failed after %d attempt(s)", len(resp.Attempts))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "interaction mode: ask, agent or plan (default: current)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-attempt deadline (default 45m)")
	cmd.Flags().StringVar(&session, "session", "", "session id (default <agent>-default)")
	cmd.Flags().StringVar(&model, "model", "", "model override passed to the backend")
	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory for the backend process")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "file glob to attach, repeatable (supports ** patterns)")
	cmd.Flags().BoolVar(&isolated, "isolated", false, "force the isolated execution path")
	return cmd
}

// expandAttachments resolves each glob to concrete files and stats them so
// the listing appended to the prompt carries real sizes.
func expandAttachments(patterns []string) ([]orchestrator.Attachment, error) {
	var out []orchestrator.Attachment
	for _, pat := range patterns {
		matches, err := doublestar.FilepathGlob(pat)
		if err != nil {
			return nil, fmt.Errorf("attach pattern %q: %w", pat, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("attach pattern %q matched no files", pat)
		}
		for _, m := range matches {
			fi, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if fi.IsDir() {
				continue
			}
			abs, err := filepath.Abs(m)
			if err != nil {
				abs = m
			}
			out = append(out, orchestrator.Attachment{
				Name:     filepath.Base(m),
				Kind:     "file",
				Size:     fi.Size(),
				FilePath: abs,
			})
		}
	}
	return out, nil
}
