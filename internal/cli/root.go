package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GetAnima/anima-memory/internal/config"
	"github.com/GetAnima/anima-memory/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "anima-memory",
	Short: "Experiential memory for autonomous agents",
	Long:  "anima-memory persists what an agent experiences: salience-scored memories, episodes, distilled knowledge, and learned behavior, all as plain files under one root.",
}

func Execute() error {
	return rootCmd.Execute()
}

// openSession builds a session over the configured storage root. Every
// subcommand except version goes through here.
func openSession() (*session.Session, error) {
	cfg := config.FromEnv()
	sess, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return sess, nil
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(reflectCmd)
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(statusCmd)
}
