// Command ldap-collector serves a normalized JSON document harvested from an
// LDAP directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/ldap-collector/internal/config"
	"github.com/isometry/ldap-collector/internal/harvest"
	"github.com/isometry/ldap-collector/internal/ldap"
	"github.com/isometry/ldap-collector/internal/logging"
	"github.com/isometry/ldap-collector/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ldap-collector: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logging.New(ctx, cfg.LogLevel)

	connector, err := ldap.NewConnectorFromConfig(cfg.ConnectionConfig())
	if err != nil {
		return fmt.Errorf("failed to configure directory connection: %w", err)
	}

	harvester := harvest.New(connector, ldap.NewRetriever(cfg.ParallelSearch), cfg.HarvestOptions())
	srv := server.New(context.WithoutCancel(ctx), harvester, cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	tflog.SubsystemInfo(ctx, logging.HTTPSubsystem, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
