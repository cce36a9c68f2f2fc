package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/formgate/internal/app"
	"github.com/iliamunaev/formgate/internal/checksum"
	"github.com/iliamunaev/formgate/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
		logger     *zap.Logger
	)

	root := &cobra.Command{
		Use:          "formgate",
		Short:        "Special form interception and response shaping service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           app.New(cfg, logger, nil).Handler,
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: 3 * time.Second,
				WriteTimeout:      cfg.Server.WriteTimeout,
				IdleTimeout:       cfg.Server.IdleTimeout,
			}
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("listening", zap.String("addr", ln.Addr().String()))
			return serve(cmd.Context(), srv, ln, cfg.Server.ShutdownTimeout)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	var fields checksum.Fields
	tokenCmd := &cobra.Command{
		Use:     "token",
		Short:   "Print the checksum for a form",
		Example: `  formgate token --type page --type-id 1 --form-id 2 --form-name Contact`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			token, err := checksum.New(cfg.Security.Secret, cfg.Security.BcryptCost).Sign(fields)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	tokenCmd.Flags().StringVar(&fields.Type, "type", "", "form type")
	tokenCmd.Flags().StringVar(&fields.TypeID, "type-id", "", "id of the entity the form is attached to")
	tokenCmd.Flags().StringVar(&fields.FormID, "form-id", "", "form id")
	tokenCmd.Flags().StringVar(&fields.FormName, "form-name", "", "form name")
	_ = tokenCmd.MarkFlagRequired("form-id")

	root.AddCommand(serveCmd, tokenCmd)
	return root
}

// serve runs srv on ln until ctx is done, then shuts it down within
// shutdownTimeout.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
