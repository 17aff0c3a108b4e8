//go:build windows

// Command workspacectl is the cobra-based CLI for capturing and launching
// workspaces locally, one subcommand per operation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/engine"
	"github.com/workspace-engine/workspace-engine/internal/launch"
)

var (
	minimizeSiblings bool
	jsonOutput       bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "workspacectl",
		Short:         "Capture and launch desktop workspaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON output")

	root.AddCommand(newListCmd(), newCaptureCmd(), newLaunchCmd(), newDeleteCmd(), newStatsCmd())
	return root
}

func buildEngine() (*engine.Engine, error) {
	logger := zap.NewNop()
	host, err := desktop.NewWindowsHost(logger)
	if err != nil {
		return nil, fmt.Errorf("initialize desktop host: %w", err)
	}
	return engine.New(host, engine.DefaultConfig(), clock.Real{}, logger), nil
}

func printResult(v interface{}) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	fmt.Printf("%+v\n", v)
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every saved workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			names, err := eng.ListWorkspaces()
			if err != nil {
				return err
			}
			printResult(names)
			return nil
		},
	}
}

func newCaptureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture <name>",
		Short: "Capture the current desktop layout into a named workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			def, err := eng.CaptureWorkspace(args[0])
			if err != nil {
				return err
			}
			printResult(def)
			return nil
		},
	}
}

func newLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch <name>",
		Short: "Launch a saved workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			result, err := eng.LaunchWorkspace(context.Background(), args[0], launch.Options{
				MinimizeSiblings: minimizeSiblings,
			})
			if err != nil {
				return err
			}
			printResult(result)
			if len(result.Failed) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&minimizeSiblings, "minimize-siblings", false, "minimize secondary windows of launched applications")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()
			return eng.DeleteWorkspace(args[0])
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print registry binding statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()
			printResult(eng.Stats())
			return nil
		},
	}
}
