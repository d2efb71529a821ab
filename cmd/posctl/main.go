package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kasirpos/internal/bootstrap"
	"kasirpos/internal/config"
	"kasirpos/internal/domain"
	"kasirpos/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	actor string
	rt    *bootstrap.Runtime
	log   *logrus.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "kasirpos maintenance CLI",
		Long:          "posctl imports products and exports reports directly against the configured snapshot store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.boot(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.rt != nil {
				c.rt.Close(c.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&c.actor, "as", "admin", "username to act as")

	root.AddCommand(c.importCmd())
	root.AddCommand(c.exportSalesCmd())
	root.AddCommand(c.exportStockCmd())
	root.AddCommand(c.reportCmd())
	root.AddCommand(c.usersCmd())
	return root
}

// boot loads config and opens the store named by STORE_BACKEND.
func (c *cli) boot(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_ = config.LoadDotEnv()
	cfg := config.Load()
	c.log = config.NewLogger(cfg.LogLevel)
	c.log.SetOutput(os.Stderr)

	rt, err := bootstrap.New(ctx, cfg, c.log, bootstrap.Options{})
	if err != nil {
		return err
	}
	c.rt = rt
	return nil
}

func (c *cli) ctx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return service.WithActor(ctx, domain.Actor{Username: c.actor})
}
