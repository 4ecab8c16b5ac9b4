package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/urfave/negroni"

	"github.com/ethpandaops/cowcatwaf/internal/botcheck"
	"github.com/ethpandaops/cowcatwaf/internal/favicon"
	"github.com/ethpandaops/cowcatwaf/internal/metrics"
	"github.com/ethpandaops/cowcatwaf/pkg/botauth"
	"github.com/ethpandaops/cowcatwaf/pkg/challenge"
	"github.com/ethpandaops/cowcatwaf/pkg/gate"
	"github.com/ethpandaops/cowcatwaf/pkg/proxy"
	"github.com/ethpandaops/cowcatwaf/pkg/rules"
	"github.com/ethpandaops/cowcatwaf/pkg/taskstore"
	"github.com/ethpandaops/cowcatwaf/pkg/token"
)

// faviconRefetchRate bounds how often an expired favicon cache entry
// triggers a new upstream request.
const faviconRefetchRate = 1.0

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gatekeeper",
	Long:  `Starts the gate, listening for inbound requests and forwarding admitted ones to the configured upstream.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		target, err := url.Parse(cfg.Proxy.Target)
		if err != nil {
			return fmt.Errorf("invalid proxy target: %w", err)
		}

		secret, err := token.SecretFromSalt(cfg.Pow.Salt)
		if err != nil {
			return fmt.Errorf("failed to derive server secret: %w", err)
		}

		store := taskstore.New(logger)
		store.Start()
		defer store.Stop()

		engine, err := rules.Compile(cfg.Rules)
		if err != nil {
			return fmt.Errorf("failed to compile rules: %w", err)
		}

		handlers := challenge.NewHandlers(store, secret, cfg.Pow, cfg.Server, logger)

		g := gate.New(handlers, engine, secret, cfg.Pow, logger)

		faviconCache := favicon.New(target, faviconRefetchRate)
		g.SetFavicon(faviconCache)

		botChecker := botcheck.New(net.DefaultResolver)
		g.SetBotChecker(botChecker)

		if cfg.Debug.Enabled {
			g.SetBotAuth(botauth.New(cfg.Debug.AuthKey, cfg.Debug.FallbackAuthKey))
		}

		metrics.MustRegister(prometheus.DefaultRegisterer)

		upstream := proxy.New(target, logger)
		router := gate.NewRouter(handlers, g, upstream)

		n := negroni.New()
		n.Use(negroni.NewRecovery())
		n.UseHandler(g.Wrap(router))

		server := &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           n,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)

		go func() {
			logger.WithField("listen", cfg.Server.Listen).Info("gate listening")

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("received shutdown signal")
		case err := <-serveErr:
			return fmt.Errorf("gate server failed: %w", err)
		case <-ctx.Done():
			logger.Info("context cancelled")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
