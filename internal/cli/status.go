package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and the storage root",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	fmt.Printf("root:       %s\n", sess.Layout.Root)
	if sess.Identity.Name != "" {
		fmt.Printf("identity:   %s\n", sess.Identity.Name)
	}
	fmt.Printf("memories:   %d\n", sess.Memory.Len())
	fmt.Printf("episodes:   %d\n", sess.Episodes.Len())
	fmt.Printf("knowledge:  %d\n", sess.Knowledge.Len())
	fmt.Printf("situations: %d\n", len(sess.Behavior.Decisions.Situations()))
	fmt.Printf("params:     %d\n", len(sess.Behavior.Params.Keys()))
	fmt.Printf("failures:   %d\n", sess.Behavior.Failures.Len())
	fmt.Printf("conflicts:  %d open\n", len(sess.Conflicts.List(false)))
	fmt.Printf("contacts:   %d\n", len(sess.Relations.All()))
	return nil
}
