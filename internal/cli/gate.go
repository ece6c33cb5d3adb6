package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimharvest/internal/lineage"
	"github.com/ppiankov/claimharvest/internal/pipeline"
)

var (
	gateCheckFiles bool
	gateMaxErrors  int
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate <records-file>",
	Short: "Validate fallback provenance on an extraction batch",
	Long: `Gate fails a batch if any secondary-sourced record is missing
required lineage fields, governance flags, or the fallback selection
source. A batch with no secondary-sourced records passes trivially.

Exit codes:
  0  PASS
  1  FAIL (lineage missing / flags missing / file missing)
  2  ERROR (input not readable / invalid JSON)

Example:
  claimharvest gate claims_extraction.jsonl --check-files`,
	Args: cobra.ExactArgs(1),
	Run:  runGate,
}

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().BoolVar(&gateCheckFiles, "check-files", false, "also verify cached text files exist on disk")
	gateCmd.Flags().IntVar(&gateMaxErrors, "max-errors", 50, "max failing rows to print before truncating")
}

func runGate(cmd *cobra.Command, args []string) {
	records, err := pipeline.ReadRecords(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] cannot read %s: %v\n", args[0], err)
		os.Exit(2)
	}

	res := lineage.Gate(records, gateCheckFiles)
	if res.Applicable == 0 {
		fmt.Println("PASS: no secondary-sourced records found (gate not applicable)")
		os.Exit(0)
	}

	if res.Pass() {
		fmt.Printf("PASS: %d secondary-sourced record(s) validated\n", res.Applicable)
		os.Exit(0)
	}

	fmt.Fprintf(os.Stderr, "FAIL: %d of %d secondary-sourced record(s) invalid\n", len(res.Issues), res.Applicable)
	for i, issue := range res.Issues {
		if i >= gateMaxErrors {
			fmt.Fprintf(os.Stderr, "... %d more\n", len(res.Issues)-i)
			break
		}
		fmt.Fprintf(os.Stderr, "  %s / %s: %s\n", issue.FamilyID, issue.Publication, strings.Join(issue.Reasons, "; "))
	}
	os.Exit(1)
}
