package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/meshtrust/internal/scoring"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <message-id> <sender-id>",
	Short: "Compute the trust score of a received message",
	Long: `Scores a message from its sender's trust level, the number of hops it
crossed, whether any hop was insecure, and the stored peer verifications.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().Int("hops", 0, "number of relays the message crossed")
	evaluateCmd.Flags().Bool("insecure", false, "at least one hop was unencrypted")
	evaluateCmd.Flags().Bool("json", false, "print the evaluation as JSON")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	hops, _ := cmd.Flags().GetInt("hops")
	insecure, _ := cmd.Flags().GetBool("insecure")
	asJSON, _ := cmd.Flags().GetBool("json")

	if hops < 0 {
		return fmt.Errorf("--hops must be non-negative")
	}

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	e := eng.scorer.EvaluateMessage(args[0], args[1], hops, insecure)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scoring.EvaluationResponse{
			Evaluation: e,
			Rating:     e.Rating(),
			Indicator:  e.Indicator(),
		})
	}

	fmt.Println(renderRating(e.OverallTrustScore))
	fmt.Printf("  Sender:        %s (%s)\n", e.OriginalSenderID, e.SenderTrustLevel)
	fmt.Printf("  Hops:          %d\n", e.HopCount)
	fmt.Printf("  Insecure hop:  %t\n", e.HasInsecureHop)
	fmt.Printf("  Verifications: %d confirmed, %d rejected\n", e.Confirmations, e.Rejections)
	return nil
}
