package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/meshtrust/internal/verification"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Record and inspect peer verifications of messages",
}

var verifyAddCmd = &cobra.Command{
	Use:   "add <message-id> <verifier-id>",
	Short: "Record a verifier's vote on a message",
	Args:  cobra.ExactArgs(2),
	RunE:  runVerifyAdd,
}

var verifyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List verifications for a message or by a verifier",
	RunE:  runVerifyList,
}

var verifyStatsCmd = &cobra.Command{
	Use:   "stats <message-id>",
	Short: "Show confirmation and rejection counts for a message",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifyStats,
}

var verifyRemoveCmd = &cobra.Command{
	Use:   "remove <message-id>",
	Short: "Remove every verification of a message",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifyRemove,
}

var verifyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored verification",
	RunE:  runVerifyClear,
}

func init() {
	verifyAddCmd.Flags().Bool("reject", false, "record a rejection instead of a confirmation")
	verifyAddCmd.Flags().String("comment", "", "optional comment")
	verifyListCmd.Flags().String("message", "", "list votes on this message")
	verifyListCmd.Flags().String("verifier", "", "list votes cast by this verifier")
	verifyListCmd.MarkFlagsMutuallyExclusive("message", "verifier")
	verifyListCmd.MarkFlagsOneRequired("message", "verifier")
	verifyClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	verifyCmd.AddCommand(verifyAddCmd)
	verifyCmd.AddCommand(verifyListCmd)
	verifyCmd.AddCommand(verifyStatsCmd)
	verifyCmd.AddCommand(verifyRemoveCmd)
	verifyCmd.AddCommand(verifyClearCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runVerifyAdd(cmd *cobra.Command, args []string) error {
	reject, _ := cmd.Flags().GetBool("reject")
	comment, _ := cmd.Flags().GetString("comment")

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := eng.verifications.Add(cmd.Context(), args[0], args[1], !reject, comment)
	if err != nil {
		return err
	}
	if out == verification.Duplicate {
		return fmt.Errorf("%s has already verified %s", args[1], args[0])
	}

	verb := "confirmed"
	if reject {
		verb = "rejected"
	}
	fmt.Printf("%s %s %s\n", args[1], verb, args[0])
	return nil
}

func runVerifyList(cmd *cobra.Command, args []string) error {
	messageID, _ := cmd.Flags().GetString("message")
	verifierID, _ := cmd.Flags().GetString("verifier")

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	var records []verification.Record
	if messageID != "" {
		records = eng.verifications.ForMessage(messageID)
	} else {
		records = eng.verifications.ByVerifier(verifierID)
	}

	if len(records) == 0 {
		fmt.Println("No verifications found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MESSAGE\tVERIFIER\tVOTE\tTIME\tCOMMENT")
	for _, r := range records {
		vote := "confirm"
		if !r.Confirmed {
			vote = "reject"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.MessageID, r.VerifierID, vote, r.Timestamp.Format(time.RFC3339), r.Comment)
	}
	return w.Flush()
}

func runVerifyStats(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	st := eng.verifications.Stats(args[0])
	fmt.Println(headingStyle.Render("Message " + args[0]))
	fmt.Printf("  Verifications: %d\n", st.TotalVerifications)
	fmt.Printf("  Confirmed:     %d\n", st.Confirmations)
	fmt.Printf("  Rejected:      %d\n", st.Rejections)
	fmt.Printf("  Net:           %+d\n", st.NetScore())
	fmt.Printf("  Consensus:     %t\n", st.HasPositiveConsensus())
	return nil
}

func runVerifyRemove(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	removed, err := eng.verifications.RemoveMessage(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("No verifications stored for %s\n", args[0])
		return nil
	}
	fmt.Printf("Removed verifications for %s\n", args[0])
	return nil
}

func runVerifyClear(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	n := eng.verifications.Count()
	ok, err := confirm(fmt.Sprintf("Remove all %d stored verifications", n), yes)
	if err != nil || !ok {
		return err
	}
	if err := eng.verifications.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Cleared %d verifications\n", n)
	return nil
}
