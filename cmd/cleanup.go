package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/meshtrust/internal/maintenance"
	"github.com/ziadkadry99/meshtrust/internal/verification"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run one verification retention pass",
	Long: fmt.Sprintf(`Evicts whole messages, oldest first, when more than %d verifications are
stored, until at most %d remain. The server runs this on a timer.`,
		verification.RetentionCap, verification.RetentionTarget),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer eng.Close()

		res := maintenance.NewRunner(eng.verifications, 0, eng.logger).Tick(cmd.Context())
		if res.RemovedRecords == 0 {
			fmt.Printf("Nothing to evict (%d verifications stored)\n", res.Remaining)
			return nil
		}
		fmt.Printf("Evicted %d verifications across %d messages, %d remain\n",
			res.RemovedRecords, len(res.EvictedMessages), res.Remaining)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
