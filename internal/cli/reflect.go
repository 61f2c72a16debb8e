package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Run the end-of-session maintenance pass",
	Long:  "Curates recent memories, runs decay, checks opinions for conflicts, and consolidates old episodes.",
	RunE:  runReflect,
}

func runReflect(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	report, err := sess.Reflect()
	if err != nil {
		return err
	}

	fmt.Printf("curated:   %d (written: %v)\n", report.Curation.Curated, report.Curation.Written)
	fmt.Printf("decayed:   %d (archived: %d, kept: %d)\n", report.Decay.Decayed, report.Decay.Archived, report.Decay.Kept)
	fmt.Printf("conflicts: %d open\n", len(report.Conflicts))
	fmt.Printf("episodes:  %d scanned, %d archived, %d lessons distilled\n",
		report.Episodes.Scanned, report.Episodes.Archived, report.Episodes.Distilled)
	return nil
}
