package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"senc/internal/driver"
	"senc/internal/hostlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// logLevelFlag is a pflag.Value so --loglevel rejects anything outside
// the five levels the CLI contract names, instead of silently accepting
// an arbitrary string that hostlog.NewLogger would then have to guess at.
type logLevelFlag struct{ value string }

var _ pflag.Value = (*logLevelFlag)(nil)

var allowedLogLevels = []string{"trace", "debug", "info", "warn", "error"}

func (f *logLevelFlag) String() string { return f.value }
func (f *logLevelFlag) Type() string   { return "level" }
func (f *logLevelFlag) Set(s string) error {
	if !slices.Contains(allowedLogLevels, s) {
		return fmt.Errorf("must be one of %v", allowedLogLevels)
	}
	f.value = s
	return nil
}

func newRootCmd() *cobra.Command {
	var outDir string
	logLevel := &logLevelFlag{value: "info"}

	cmd := &cobra.Command{
		Use:   "senc <input_dir>",
		Short: "Compile sandboxed TypeScript/JavaScript entrypoints into configuration files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputDir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving input directory: %w", err)
			}
			resolvedOut := outDir
			if resolvedOut == "" {
				resolvedOut = inputDir
			}
			absOut, err := filepath.Abs(resolvedOut)
			if err != nil {
				return fmt.Errorf("resolving output directory: %w", err)
			}

			logger := hostlog.NewLogger(logLevel.String(), cmd.ErrOrStderr())

			fs := afero.NewOsFs()
			if err := fs.MkdirAll(absOut, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			errs := driver.Run(driver.Options{
				Fs:          fs,
				ProjectRoot: inputDir,
				OutRoot:     absOut,
				Logger:      logger,
			})
			if len(errs) > 0 {
				return fmt.Errorf("%d entrypoint(s) failed", len(errs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (defaults to the input directory)")
	cmd.Flags().Var(logLevel, "loglevel", "log threshold: trace|debug|info|warn|error")

	return cmd
}
