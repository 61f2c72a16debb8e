package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GetAnima/anima-memory/internal/memory"
)

var (
	rememberType       string
	rememberImportance string
	rememberTags       []string
	rememberWeight     float64
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemember,
}

func init() {
	rememberCmd.Flags().StringVar(&rememberType, "type", "event", "memory type: event, insight, decision, lesson")
	rememberCmd.Flags().StringVar(&rememberImportance, "importance", "medium", "importance: low, medium, high, critical")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tag", nil, "tags (repeatable)")
	rememberCmd.Flags().Float64Var(&rememberWeight, "weight", 0.5, "emotional weight in [0,1]")
}

func runRemember(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	weight := rememberWeight
	m, err := sess.Remember(strings.Join(args, " "), memory.RememberOpts{
		Type:            memory.Type(rememberType),
		Importance:      memory.Importance(rememberImportance),
		Tags:            rememberTags,
		EmotionalWeight: &weight,
	})
	if err != nil {
		return err
	}

	fmt.Printf("remembered %s (tier: %s, salience: %.2f)\n", m.ID, m.Tier, m.Salience)
	return nil
}
