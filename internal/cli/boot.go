package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Print the session boot payload as JSON",
	Long:  "Emits the condensed state an agent loads at startup: proven decisions, supported hypotheses, recent failures, parameters, and the highest-value memories and episodes.",
	RunE:  runBoot,
}

func runBoot(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sess.Boot())
}
