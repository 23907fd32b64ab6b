// Package cmd holds the provmap command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"provmap/internal/config"
	"provmap/internal/errors"
	"provmap/internal/logger"
	"provmap/internal/version"
)

// app is the state shared by all subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	settings   *config.Settings
	log        *slog.Logger
}

func newApp() *app {
	return &app{v: config.New(), log: slog.Default()}
}

// RootCommand creates the provmap command tree.
func RootCommand() *cobra.Command {
	return rootCommand(newApp())
}

func rootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "provmap",
		Short:         "Extract province outlines from color-coded lookup maps",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "YAML config file")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-format", "text", "Log format: text or json")
	mustBind(a.v.BindPFlag("log.level", pf.Lookup("log-level")))
	mustBind(a.v.BindPFlag("log.format", pf.Lookup("log-format")))

	root.AddCommand(
		convertCommand(a),
		gameDataCommand(a),
		tooltipCommand(a),
		verifyCommand(a),
	)
	return root
}

// initialize loads settings once flags are parsed and builds the logger.
func (a *app) initialize(cmd *cobra.Command) error {
	s, err := config.Load(a.v, a.configFile)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		return errors.New(err).Category(errors.CategoryConfig).Build()
	}
	a.settings = s

	log, err := logger.New(cmd.ErrOrStderr(), s.Log)
	if err != nil {
		return errors.New(err).Category(errors.CategoryConfig).Build()
	}
	a.log = log
	return nil
}

// Execute runs the CLI with args. Failures are logged with their category
// and returned so main can exit non-zero.
func Execute(ctx context.Context, args []string) error {
	a := newApp()
	root := rootCommand(a)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		a.log.Error("command failed",
			"command", cmd.Name(),
			"category", errors.CategoryOf(err),
			"error", err)
	}
	return err
}

func mustBind(err error) {
	if err != nil {
		panic(fmt.Sprintf("flag binding: %v", err))
	}
}
