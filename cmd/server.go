package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/meshtrust/internal/maintenance"
	"github.com/ziadkadry99/meshtrust/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API server",
	Long: `Starts the meshtrust REST API for trust levels, verifications and message
evaluation, and runs verification retention on the configured interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close()

		port := eng.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: eng.cfg.Server.AllowAllOrigins,
			Logger:   eng.logger,
		}, server.Services{
			Trust:         eng.trust,
			Verifications: eng.verifications,
			Scorer:        eng.scorer,
			Audit:         eng.audit,
		})

		runner := maintenance.NewRunner(eng.verifications, eng.cfg.Maintenance.Interval, eng.logger)
		go runner.Run(ctx)

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "meshtrust server %s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", eng.db.Path())
		fmt.Fprintf(os.Stderr, "  Contacts: %d, verifications: %d\n", eng.trust.Stats().TotalContacts, eng.verifications.Count())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
