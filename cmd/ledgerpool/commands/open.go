package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/ledgerpool"
	"github.com/mosaicnetworks/ledgerpool/src/pool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	refreshInterval time.Duration
)

//NewOpenCmd returns the command that opens a pool and keeps it refreshed
func NewOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open [name]",
		Short: "Open a pool, print its view, and refresh it until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE:  openPool,
	}

	AddOpenFlags(cmd)

	return cmd
}

//AddOpenFlags adds flags to the open command
func AddOpenFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&refreshInterval, "refresh-interval", 30*time.Second, "Time between refreshes (0 to disable)")
}

func openPool(cmd *cobra.Command, args []string) error {
	name := args[0]
	logger := _config.LedgerPool.Logger()

	lp := ledgerpool.NewLedgerPool(&_config.LedgerPool)
	if err := lp.Init(); err != nil {
		logger.Error("Cannot initialize ledgerpool:", err)
		return err
	}
	defer lp.Shutdown()

	go lp.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	h, err := lp.OpenPool(ctx, name, pool.RuntimeConfig{})
	if err != nil {
		return err
	}

	snap, err := lp.PoolSnapshot(h)
	if err != nil {
		return err
	}
	if err := printJSON(snap); err != nil {
		return err
	}

	var tick <-chan time.Time
	if refreshInterval > 0 {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			snap, err := lp.RefreshPool(ctx, h)
			if err != nil {
				// the session keeps its previous view
				logger.WithError(err).Warn("Refresh failed")
				continue
			}
			logger.WithFields(logrus.Fields{
				"nodes":       len(snap.Peers),
				"ledger_size": snap.LedgerSize,
				"root_hash":   snap.RootHash,
				"unreachable": len(snap.Unreachable),
			}).Info("Refreshed")
		case <-ctx.Done():
			return lp.ClosePool(context.Background(), h)
		}
	}
}
