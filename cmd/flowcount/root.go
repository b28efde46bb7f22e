package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/banshee-data/flow.report/internal/config"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	settingsPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "flowcount",
		Short:        "Count traffic crossing six direction lines",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "",
		"settings file (TOML); defaults to ./flowcount.toml when present")

	cmd.AddCommand(
		newRunCmd(opts),
		newMigrateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadSettings reads the settings file and env, with flags bound by bind
// taking precedence when set.
func (o *rootOptions) loadSettings(bind func(v *viper.Viper) error) (config.Settings, error) {
	v, err := config.NewViper(o.settingsPath)
	if err != nil {
		return config.Settings{}, err
	}
	if bind != nil {
		if err := bind(v); err != nil {
			return config.Settings{}, err
		}
	}
	return config.LoadSettings(v)
}
