package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/ledgerpool"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/spf13/cobra"
)

var (
	genesisFile     string
	nodeSpecs       []string
	tuningTimeout   time.Duration
	tuningConnLimit int
	preordered      []string
)

//NewConfigCmd produces a ConfigCmd which manages pool configurations
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pool configurations",
	}

	cmd.AddCommand(
		newConfigCreateCmd(),
		newConfigDeleteCmd(),
		newConfigListCmd(),
		newConfigShowCmd(),
	)

	return cmd
}

func newConfigCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a pool configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  configCreate,
	}

	AddConfigCreateFlags(cmd)

	return cmd
}

//AddConfigCreateFlags adds flags to the config create command
func AddConfigCreateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&genesisFile, "genesis", "", "JSON node list (defaults to <datadir>/<name>.peers.json)")
	cmd.Flags().StringSliceVar(&nodeSpecs, "node", nil, "Node as pubkey@ip:port[@moniker], repeatable. Overrides --genesis")
	cmd.Flags().DurationVar(&tuningTimeout, "pool-timeout", 0, "Deadline of open and refresh for this pool")
	cmd.Flags().IntVar(&tuningConnLimit, "pool-conn-limit", 0, "Nodes queried in parallel for this pool")
	cmd.Flags().StringSliceVar(&preordered, "preorder", nil, "Public keys of nodes to query first")
}

func newConfigDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a pool configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  configDelete,
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pool configurations",
		Args:  cobra.NoArgs,
		RunE:  configList,
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Print a pool configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  configShow,
	}
}

// parseNodeSpec parses pubkey@ip:port[@moniker].
func parseNodeSpec(s string) (*peers.Peer, error) {
	parts := strings.Split(s, "@")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid node %q, expected pubkey@ip:port[@moniker]", s)
	}

	moniker := ""
	if len(parts) == 3 {
		moniker = parts[2]
	}

	return peers.NewPeer(parts[0], parts[1], moniker), nil
}

// withLedgerPool initialises a LedgerPool without HTTP service, runs fn and
// shuts it down.
func withLedgerPool(fn func(*ledgerpool.LedgerPool) error) error {
	conf := _config.LedgerPool
	conf.NoService = true

	lp := ledgerpool.NewLedgerPool(&conf)
	if err := lp.Init(); err != nil {
		return err
	}
	defer lp.Shutdown()

	return fn(lp)
}

func configCreate(cmd *cobra.Command, args []string) error {
	spec := ledgerpool.PoolSpec{
		GenesisFile:     genesisFile,
		Timeout:         tuningTimeout,
		ConnLimit:       tuningConnLimit,
		PreorderedNodes: preordered,
	}

	for _, ns := range nodeSpecs {
		p, err := parseNodeSpec(ns)
		if err != nil {
			return err
		}
		spec.Nodes = append(spec.Nodes, p)
	}

	return withLedgerPool(func(lp *ledgerpool.LedgerPool) error {
		if err := lp.CreatePoolConfig(args[0], spec); err != nil {
			return err
		}
		fmt.Printf("Pool configuration %s created\n", args[0])
		return nil
	})
}

func configDelete(cmd *cobra.Command, args []string) error {
	return withLedgerPool(func(lp *ledgerpool.LedgerPool) error {
		if err := lp.DeletePoolConfig(args[0]); err != nil {
			return err
		}
		fmt.Printf("Pool configuration %s deleted\n", args[0])
		return nil
	})
}

func configList(cmd *cobra.Command, args []string) error {
	return withLedgerPool(func(lp *ledgerpool.LedgerPool) error {
		names, err := lp.ListPoolConfigs()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	})
}

func configShow(cmd *cobra.Command, args []string) error {
	return withLedgerPool(func(lp *ledgerpool.LedgerPool) error {
		desc, err := lp.PoolConfig(args[0])
		if err != nil {
			return err
		}
		return printJSON(desc)
	})
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
