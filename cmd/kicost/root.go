package main

import (
	"fmt"

	"github.com/anderwm/KiCost/config"
	"github.com/anderwm/KiCost/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries the state shared by every subcommand
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "kicost",
		Short: "Build a priced cost sheet from BOM files",
		Long: `kicost merges the parts of one or more bills of materials into
groups of identical parts, prices every group from the distributors' offers
and writes a cost sheet with per-distributor unit and extended prices.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (console, json, auto)")
	mustBind(a.v, "log.level", root.PersistentFlags().Lookup("log-level"))
	mustBind(a.v, "log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(newCostCommand(a))
	root.AddCommand(newDistributorsCommand())
	return root
}

// setup loads configuration once flags are parsed, so bound flags override
// config files and environment variables.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWith(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	logging.SetDefault(a.logger)
	return nil
}

func mustBind(v *viper.Viper, key string, f *pflag.Flag) {
	if f == nil {
		panic(fmt.Sprintf("flag for %s not defined", key))
	}
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("failed to bind %s: %v", key, err))
	}
}
