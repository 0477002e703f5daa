package commands

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/mosaicnetworks/ledgerpool/src/node"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	nodeKeyFile   string
	nodePeersFile string
	nodeStdin     bool
)

//NewNodeCmd returns the command that runs a simulated ledger node
func NewNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a simulated ledger node",
		RunE:  runNode,
	}

	AddNodeFlags(cmd)

	return cmd
}

//AddNodeFlags adds flags to the node command
func AddNodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&nodeKeyFile, "key", "", "File containing the node's private key (defaults to <datadir>/priv_key)")
	cmd.Flags().StringVar(&nodePeersFile, "peers", "", "JSON node list reported by this node (defaults to <datadir>/peers.json)")
	cmd.Flags().StringP("listen", "l", _config.Listen, "Listen IP:Port of the node")
	cmd.Flags().StringP("advertise", "a", _config.Advertise, "Advertise IP:Port of the node")
	cmd.Flags().String("moniker", _config.Moniker, "Optional name")
	cmd.Flags().BoolVar(&nodeStdin, "stdin", false, "Append each line read from stdin to the ledger")
}

func runNode(cmd *cobra.Command, args []string) error {
	logger := _config.LedgerPool.Logger()

	if nodeKeyFile == "" {
		nodeKeyFile = _config.LedgerPool.Keyfile()
	}
	if nodePeersFile == "" {
		nodePeersFile = _config.LedgerPool.PeersFile()
	}

	key, err := keys.NewSimpleKeyfile(nodeKeyFile).ReadKey()
	if err != nil {
		return fmt.Errorf("reading key: %v", err)
	}

	peerSet, err := peers.NewJSONPeerSet(nodePeersFile).PeerSet()
	if err != nil {
		return fmt.Errorf("reading peers: %v", err)
	}
	if peerSet == nil {
		return fmt.Errorf("%s is empty", nodePeersFile)
	}

	trans, err := net.NewTCPTransport(
		_config.Listen,
		_config.Advertise,
		_config.LedgerPool.MaxPool,
		_config.LedgerPool.TCPTimeout,
		logger,
	)
	if err != nil {
		return err
	}

	validator := node.NewValidator(key, _config.Moniker)

	if _, ok := peerSet.ByPubKey[common.NormalizeHex(validator.PublicKeyHex())]; !ok {
		logger.Warn("This node's public key is not in the node list it reports")
	}

	n := node.NewNode(
		&node.Config{Moniker: _config.Moniker, Logger: logger},
		validator,
		peerSet,
		trans,
	)

	logger.WithFields(logrus.Fields{
		"listen":     trans.AdvertiseAddr(),
		"public_key": validator.PublicKeyHex(),
		"nodes":      peerSet.Len(),
	}).Info("Running simulated ledger node")

	if nodeStdin {
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				n.SubmitTransactions([]byte(scanner.Text()))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		n.Shutdown()
	}()

	n.Run()

	return nil
}
