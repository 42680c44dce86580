// Copyright (C) 2025 Jeff Rose
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command certmate verifies X.509 certificates against expected attribute
// values, once from the command line or continuously as a service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/whiskeyjimbo/CertMate/internal/output"
)

// Set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	state := output.StateOK
	root := newRootCmd(&state)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(output.StateUnknown.ExitCode())
	}
	os.Exit(state.ExitCode())
}

// newRootCmd builds the command tree. The check command stores its verdict
// in state.
func newRootCmd(state *output.State) *cobra.Command {
	root := &cobra.Command{
		Use:   "certmate",
		Short: "Verify X.509 certificates against expected attribute values",
		Long: `certmate fetches a certificate from a file, a TLS or SMTP (STARTTLS) endpoint,
or a remote file over SSH, and checks it against the expected subject, issuer,
key, signature, alternative names and validity.

Examples:
  # One-shot check in monitoring plugin format
  certmate check --tls www.example.com:443 --subject-cn www.example.com --not-after-warn 30d --not-after-crit 7d

  # Continuous monitoring with metrics, history and notifications
  certmate serve --config config.yaml`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	root.AddCommand(newCheckCmd(state))
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "certmate %s (commit: %s)\n", version, commit)
		},
	}
}

// initLogger builds a production logger writing to stderr. verbose lowers the
// level to debug.
func initLogger(level zapcore.Level, verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}

	zapL, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return zapL.Sugar(), nil
}

func verboseFlag(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}
