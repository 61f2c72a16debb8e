package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GetAnima/anima-memory/internal/config"
	"github.com/GetAnima/anima-memory/internal/server"
	"github.com/GetAnima/anima-memory/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()

	sess, err := session.Open(cfg)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	srv := server.New(sess, VersionString())

	// Pick up edits made to the index files by hand or by a second tool.
	watcher, err := srv.WatchIndices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: index watch disabled (%v)\n", err)
	} else {
		defer watcher.Close()
	}

	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "anima-memory serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  root: %s\n", sess.Layout.Root)
		fmt.Fprintf(os.Stderr, "  session: %s\n", sess.ID)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
