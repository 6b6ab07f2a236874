// Command feedmock serves a generated parking feed for local development.
//
// Flags may also be set through FEEDMOCK_* environment variables, for
// example FEEDMOCK_ZONES=80.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchcryptid/parking-zone-sync/internal/feedmock"
)

var rootCmd = &cobra.Command{
	Use:   "feedmock",
	Short: "Serves a generated parking zone feed",
	Long: `feedmock generates a set of parking zones around Timișoara and serves them on
/api/parking with the same read and admin contract as the city feed. Availability
drifts on a timer so the sync service sees changing snapshots.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().String("addr", ":3000", "listen address")
	rootCmd.Flags().Int("zones", 40, "number of generated zones")
	rootCmd.Flags().Int64("seed", 42, "random seed for zone generation")
	rootCmd.Flags().Duration("drift-interval", 15*time.Second, "how often availability changes (0 disables)")
	rootCmd.Flags().Int("drift-step", 3, "maximum change in available spots per drift")
	rootCmd.Flags().String("log-level", "info", "log level")
	rootCmd.Flags().String("log-format", "json", "log format (json or text)")

	cobra.CheckErr(viper.BindPFlags(rootCmd.Flags()))
	viper.SetEnvPrefix("FEEDMOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func run(ctx context.Context) error {
	logger := sharedobs.NewLogger(viper.GetString("log-level"), viper.GetString("log-format")).
		With("service", "parking-feed-mock")

	n := viper.GetInt("zones")
	if n < 0 {
		return fmt.Errorf("invalid zones: %d", n)
	}
	gen := feedmock.NewGenerator(viper.GetInt64("seed"))
	reg := feedmock.NewRegistry(gen.Zones(n))

	srv := &http.Server{
		Addr:              viper.GetString("addr"),
		Handler:           feedmock.NewRouter(reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if every := viper.GetDuration("drift-interval"); every > 0 {
		go feedmock.RunDrift(ctx, clockwork.NewRealClock(), gen, reg, every, viper.GetInt("drift-step"))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("feed mock listening", "addr", srv.Addr, "zones", reg.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("feedmock failed", "error", err)
		os.Exit(1)
	}
}
