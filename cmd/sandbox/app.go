package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/logging"
)

// app is the sandbox command line
type app struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
	dev    bool
}

func newApp() *app {
	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	a.root = &cobra.Command{
		Use:   "sandbox",
		Short: "Template execution sandbox for scraping jobs",
		Long: `sandbox validates and runs user-authored scraping templates under
capability, time and call-budget limits.

Configuration is read from the environment (SANDBOX_*, TEMPLATE_*, PRENAV_*,
LOG_*, PORT, HOST).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.PersistentFlags().BoolVar(&a.dev, "dev", false, "Development logging (console encoder, debug level)")

	a.root.AddCommand(
		a.newServeCmd(),
		a.newValidateCmd(),
		a.newRunCmd(),
		a.newCheckCmd(),
	)
	return a
}

// withOutput sets custom output writers
func (a *app) withOutput(stdout, stderr io.Writer) *app {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

func (a *app) execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

func (a *app) executeWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

// load reads configuration and builds the logger. LOG_DEV or --dev selects
// development logging.
func (a *app) load() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if a.dev {
		cfg.Logging.Development = true
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" && !a.dev {
		logCfg.Level = cfg.Logging.Level
	}
	// keep stdout clean for command output
	logCfg.OutputPaths = []string{"stderr"}

	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (a *app) printJSON(v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(append(data, '\n'))
	return err
}
