package node

import (
	"fmt"
	"sync/atomic"

	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/sirupsen/logrus"
)

func (n *Node) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.StatusRequest:
		n.processStatusRequest(rpc, cmd)
	default:
		n.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

func (n *Node) processStatusRequest(rpc net.RPC, cmd *net.StatusRequest) {
	atomic.AddUint64(&n.statusRequests, 1)

	resp := &net.StatusResponse{
		PubKeyHex: n.validator.PublicKeyHex(),
		Nonce:     cmd.Nonce,
		Status:    n.Status(),
	}

	var err error
	if forged := n.getForgedKey(); forged != nil {
		var digest []byte
		digest, err = resp.Digest()
		if err == nil {
			resp.Signature, err = keys.SignDigest(forged, digest)
		}
	} else {
		err = n.validator.SignStatus(resp)
	}

	n.logger.WithFields(logrus.Fields{
		"nonce":       cmd.Nonce,
		"ledger_size": resp.Status.LedgerSize,
		"error":       err,
	}).Debug("processStatusRequest")

	if err != nil {
		rpc.Respond(nil, err)
		return
	}
	rpc.Respond(resp, nil)
}
