package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var recallLimit int

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Search memories by relevance",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().IntVar(&recallLimit, "limit", 10, "maximum results")
}

func runRecall(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	results, err := sess.Memory.Recall(strings.Join(args, " "), recallLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matching memories")
		return nil
	}

	for _, m := range results {
		tags := ""
		if len(m.Tags) > 0 {
			tags = " [" + strings.Join(m.Tags, ", ") + "]"
		}
		fmt.Printf("%s  %-8s %-8s %s%s\n", m.CreatedAt.Format("2006-01-02"), m.Type, m.Importance, m.Content, tags)
	}
	return nil
}
