package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the ipg command tree against the given filesystem,
// letting tests substitute afero.NewMemMapFs() for the real one.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	v := viper.New()
	v.SetFs(fs)

	root := &cobra.Command{
		Use:           "ipg",
		Short:         "ipg generates a backtracking recursive-descent parser from a grammar file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a .ipg.yaml/.ipg.json config file")

	root.AddCommand(newGenerateCmd(fs, v))

	return root
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("ipg")
	v.AutomaticEnv()
}
