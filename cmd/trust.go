package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/meshtrust/internal/progress"
	"github.com/ziadkadry99/meshtrust/internal/trust"
)

// importBatchSize bounds how many ids are handed to the store per persist.
const importBatchSize = 100

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage per-contact trust levels",
	Long: `View and change the trust level assigned to each contact:
0 Unknown, 1 Known Contact, 2 Friend, 3 Close/Family.`,
}

var trustGetCmd = &cobra.Command{
	Use:   "get <contact-id>",
	Short: "Show a contact's trust level",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustGet,
}

var trustSetCmd = &cobra.Command{
	Use:   "set <contact-id> <level>",
	Short: "Set a contact's trust level (0-3 or unknown|known|friend|close)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrustSet,
}

var trustRemoveCmd = &cobra.Command{
	Use:   "remove <contact-id>",
	Short: "Forget a contact's trust level (reverts to Unknown)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustRemove,
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored trust levels",
	RunE:  runTrustList,
}

var trustImportCmd = &cobra.Command{
	Use:   "import [contact-id...]",
	Short: "Import contacts at Known Contact without overriding existing levels",
	RunE:  runTrustImport,
}

var trustStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count contacts per trust level",
	RunE:  runTrustStats,
}

var trustClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored trust level",
	RunE:  runTrustClear,
}

func init() {
	trustSetCmd.Flags().Bool("auto", false, "record as an automatic rather than manual decision")
	trustListCmd.Flags().String("level", "", "only list contacts at this level")
	trustImportCmd.Flags().String("file", "", "read contact ids from a file, one per line ('-' for stdin)")
	trustClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	trustCmd.AddCommand(trustGetCmd)
	trustCmd.AddCommand(trustSetCmd)
	trustCmd.AddCommand(trustRemoveCmd)
	trustCmd.AddCommand(trustListCmd)
	trustCmd.AddCommand(trustImportCmd)
	trustCmd.AddCommand(trustStatsCmd)
	trustCmd.AddCommand(trustClearCmd)
	rootCmd.AddCommand(trustCmd)
}

func runTrustGet(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	ct := eng.trust.Get(args[0])
	fmt.Printf("%s: %s (level %d, factor %.2f)\n", ct.ContactID, ct.Level, int(ct.Level), ct.Factor())
	if !ct.LastUpdated.IsZero() {
		fmt.Printf("  updated %s, manual: %t\n", ct.LastUpdated.Format(time.RFC3339), ct.ManuallySet)
	}
	return nil
}

func runTrustSet(cmd *cobra.Command, args []string) error {
	level, err := trust.ParseLevel(args[1])
	if err != nil {
		return err
	}
	auto, _ := cmd.Flags().GetBool("auto")

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.trust.Set(cmd.Context(), args[0], level, !auto); err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", args[0], level)
	return nil
}

func runTrustRemove(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	removed, err := eng.trust.Remove(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("%s had no stored trust level\n", args[0])
		return nil
	}
	fmt.Printf("Removed trust level for %s\n", args[0])
	return nil
}

func runTrustList(cmd *cobra.Command, args []string) error {
	levelFlag, _ := cmd.Flags().GetString("level")

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	var contacts []trust.ContactTrust
	if levelFlag != "" {
		level, err := trust.ParseLevel(levelFlag)
		if err != nil {
			return err
		}
		contacts = eng.trust.ByLevel(level)
	} else {
		for _, ct := range eng.trust.All() {
			contacts = append(contacts, ct)
		}
		sort.Slice(contacts, func(i, j int) bool { return contacts[i].ContactID < contacts[j].ContactID })
	}

	if len(contacts) == 0 {
		fmt.Println("No trust levels stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTACT\tLEVEL\tMANUAL\tUPDATED")
	for _, ct := range contacts {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", ct.ContactID, ct.Level, ct.ManuallySet, ct.LastUpdated.Format(time.RFC3339))
	}
	return w.Flush()
}

func runTrustImport(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")

	ids := append([]string(nil), args...)
	if file != "" {
		var r io.Reader = os.Stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening %s: %w", file, err)
			}
			defer f.Close()
			r = f
		}
		fromFile, err := readContactIDs(r)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no contact ids given (pass them as arguments or with --file)")
	}

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	imported, err := importContacts(cmd.Context(), eng.trust, ids, progress.NewReporter("Importing contacts"))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d of %d contacts as %s\n", imported, len(ids), trust.LevelKnown)
	return nil
}

func runTrustStats(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	st := eng.trust.Stats()
	fmt.Println(headingStyle.Render(fmt.Sprintf("Total contacts: %d", st.TotalContacts)))
	for _, l := range trust.Levels() {
		fmt.Printf("  %d %-14s %d\n", int(l), l, st.Count(l))
	}
	return nil
}

func runTrustClear(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	n := eng.trust.Stats().TotalContacts
	ok, err := confirm(fmt.Sprintf("Remove all %d stored trust levels", n), yes)
	if err != nil || !ok {
		return err
	}
	if err := eng.trust.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Cleared %d trust levels\n", n)
	return nil
}

// readContactIDs returns one id per non-blank line. Lines starting with '#'
// are comments.
func readContactIDs(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, sc.Err()
}

// contactImporter is satisfied by *trust.Store.
type contactImporter interface {
	ImportKnownContacts(ctx context.Context, contactIDs []string) (int, error)
}

// importContacts feeds ids to the store in batches, reporting progress.
func importContacts(ctx context.Context, store contactImporter, ids []string, reporter progress.Reporter) (int, error) {
	reporter.Start(len(ids))
	defer reporter.Finish()

	total := 0
	for start := 0; start < len(ids); start += importBatchSize {
		end := min(start+importBatchSize, len(ids))
		n, err := store.ImportKnownContacts(ctx, ids[start:end])
		total += n
		if err != nil {
			return total, err
		}
		reporter.Update(end, ids[end-1])
	}
	return total, nil
}
