package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/meshtrust/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "meshtrust",
	Short: "Trust-weighted message authentication for mesh networks",
	Long: `meshtrust scores messages relayed over a mesh network. It combines
the trust you place in the original sender, how many hops the message
crossed, whether any hop was insecure, and peer confirmations weighted
by the trust you place in each verifier.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
