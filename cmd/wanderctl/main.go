package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jengzang/wander-backend-go/internal/app"
	"github.com/jengzang/wander-backend-go/internal/config"
	"github.com/jengzang/wander-backend-go/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wanderctl",
		Short:         "Inspect and maintain discovered-cell documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(statsCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(rederiveCmd())
	root.AddCommand(regionsCmd())
	root.AddCommand(tokenCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig is swapped out by tests
var loadConfig = config.Load

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	return app.New(ctx, cfg)
}
