// Package cli implements the cobra-based CLI commands for kittynode.
//
// Each subcommand is defined in its own file within this package. This file
// defines the root command that serves as the parent for all subcommands,
// handles global flags, and maps errors to exit codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose lowers the log level to debug. Logs go to stderr.
	verbose bool

	// metricsFile overrides the metrics_file config value.
	metricsFile string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it provides help
// text and global flags, and sets up the session (config, logger, metrics)
// before any subcommand runs.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kittynode",
		Short: "Install and manage containerized node packages",
		Long: `kittynode installs, inspects and removes node "packages": named groups of
containers (for example an Ethereum execution client and consensus client)
sharing a network, volumes and host files.

State lives in the Docker daemon and under ~/.kittynode (override with
KITTYNODE_HOME).`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return startSession(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"Write Prometheus metrics to this file after the command")

	rootCmd.AddCommand(NewPackagesCommand())
	rootCmd.AddCommand(NewInstalledCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewContainersCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewResetCommand())
	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewDeleteCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewPortsCommand())
	rootCmd.AddCommand(NewDockerStatusCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// SIGINT and SIGTERM cancel the command's context; runtime calls in flight
// return and the command reports a cancellation.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	endSession()

	if err != nil {
		printError(os.Stderr, err)
		os.Exit(int(exitCode(err)))
	}
}

// exitCode maps err to the process exit code. A cancelled context counts
// as the user cancelling.
func exitCode(err error) model.ExitCode {
	if errors.Is(err, context.Canceled) {
		return model.ExitUserCancelled
	}
	return model.ExitCodeFor(err)
}

// errorJSON is the JSON error envelope written to stderr.
type errorJSON struct {
	Error errorDetailJSON `json:"error"`
}

type errorDetailJSON struct {
	Message   string   `json:"message"`
	Kind      string   `json:"kind,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	Completed []string `json:"completed,omitempty"`
}

// printError outputs an error in the appropriate format (JSON or text)
// based on the --json global flag. Errors always go to w (stderr), even in
// JSON mode, because stdout is reserved for successful command output.
func printError(w io.Writer, err error) {
	detail := errorDetailJSON{Message: err.Error(), Kind: model.KindOf(err).String()}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		detail.Message = cliErr.Message
		if cliErr.Err != nil {
			detail.Detail = cliErr.Err.Error()
		}
	}

	var partial *model.PartialStateError
	if errors.As(err, &partial) {
		detail.Completed = partial.Completed
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(errorJSON{Error: detail}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if detail.Detail != "" {
		fmt.Fprintf(w, "Error: %s: %s\n", detail.Message, detail.Detail)
	} else {
		fmt.Fprintf(w, "Error: %s\n", detail.Message)
	}
	if len(detail.Completed) > 0 {
		fmt.Fprintln(w, "These steps were applied and have not been undone:")
		for _, step := range detail.Completed {
			fmt.Fprintf(w, "  - %s\n", step)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// logger returns the session logger, or a no-op logger before the session
// starts.
func logger() *zap.Logger {
	if current == nil {
		return zap.NewNop()
	}
	return current.log
}
