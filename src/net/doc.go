// Package net implements the transports used to reach ledger nodes.
//
// A ledger pool client talks to the nodes of a pool through a Transport, which
// carries StatusRequests to nodes and brings back signed StatusResponses. Nodes
// use the same Transport interface on the server side: incoming requests are
// delivered as RPCs on the Consumer channel, and answered through
// RPC.Respond. There are two implementations:
//
// - Inmem: in-memory transport used for testing
//
// - TCP: communicating over plain TCP
//
// TCP
//
// Each request is framed by a byte that indicates the message type, followed
// by the JSON encoded request. The response is a JSON error string followed by
// the JSON encoded response. Connections are pooled per target.
//
// A node binds a TCP listener with NewTCPTransport. A client that only issues
// requests uses NewTCPClientTransport, which dials out but never listens.
package net
