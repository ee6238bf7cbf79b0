package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/meshtrust/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize meshtrust configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure meshtrust and writes the config file (default .meshtrust.yml).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
