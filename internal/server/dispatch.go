package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corvus-proxy/corvus/internal/classify"
	"github.com/corvus-proxy/corvus/internal/clusterslot"
	"github.com/corvus-proxy/corvus/internal/command"
	"github.com/corvus-proxy/corvus/internal/helpers"
	"github.com/corvus-proxy/corvus/internal/resp"
)

// handleExtra answers a command entirely from proxy-side state, never
// touching a backend.
func (c *Connection) handleExtra(name, args [][]byte) []byte {
	_ = args
	w := resp.NewWriter()
	switch strings.ToUpper(string(name)) {
	case "PING":
		if len(args) > 0 {
			return w.BulkString(args[0]).Bytes()
		}
		return w.SimpleString("PONG").Bytes()

	case "AUTH":
		return c.handleAuth(args)

	case "HELLO":
		return w.SimpleString("OK").Bytes()

	case "COMMAND":
		return w.ArrayHeader(0).Bytes()

	case "PROXY":
		return c.handleProxy(args)

	case "CLUSTER":
		return c.handleCluster(args)

	case "INFO":
		return w.BulkString([]byte(c.renderInfo())).Bytes()

	case "CONFIG":
		return c.handleConfig(args)

	case "CLIENT":
		return c.handleClient(args)

	case "SHUTDOWN":
		return w.Error("ERR SHUTDOWN is not supported over the wire protocol").Bytes()

	default:
		return w.Error("ERR unsupported command '" + string(name) + "'").Bytes()
	}
}

func (c *Connection) handleAuth(args [][]byte) []byte {
	w := resp.NewWriter()
	if c.w.cfg.RequirePass == "" {
		return w.Error("ERR Client sent AUTH, but no password is set").Bytes()
	}
	if len(args) != 1 {
		return w.Error("ERR wrong number of arguments for 'auth' command").Bytes()
	}
	if subtle.ConstantTimeCompare(args[0], []byte(c.w.cfg.RequirePass)) != 1 {
		return w.Error("ERR invalid password").Bytes()
	}
	c.authenticated = true
	return w.SimpleString("OK").Bytes()
}

// handleProxy answers the proxy's own info/ops channel. UPDATESLOTMAP
// kicks an out-of-band topology refresh and acknowledges immediately;
// it does not wait for the refresh to complete.
func (c *Connection) handleProxy(args [][]byte) []byte {
	w := resp.NewWriter()
	if len(args) == 0 {
		return w.Error("ERR wrong number of arguments for 'proxy' command").Bytes()
	}
	switch strings.ToUpper(string(args[0])) {
	case "UPDATESLOTMAP":
		c.w.updater.Kick()
		return w.SimpleString("OK").Bytes()
	default:
		return w.Error("ERR Proxy error").Bytes()
	}
}

func (c *Connection) handleCluster(args [][]byte) []byte {
	w := resp.NewWriter()
	if len(args) == 0 {
		return w.Error("ERR wrong number of arguments for 'cluster' command").Bytes()
	}
	switch strings.ToUpper(string(args[0])) {
	case "INFO":
		sm := c.w.router.Snapshot()
		state := "ok"
		if sm.Empty() {
			state = "fail"
		}
		return w.BulkString([]byte(fmt.Sprintf("cluster_enabled:1\r\ncluster_state:%s\r\ncluster_slots_assigned:%d\r\n", state, countAssignedSlots(sm)))).Bytes()
	case "SLOTS":
		return c.renderClusterSlots()
	case "MYID":
		return w.BulkString([]byte(c.w.cfg.Cluster)).Bytes()
	default:
		return w.Error("ERR unsupported CLUSTER subcommand").Bytes()
	}
}

func countAssignedSlots(sm *clusterslot.SlotMap) int {
	total := 0
	for _, r := range sm.Ranges() {
		total += r.End - r.Start + 1
	}
	return total
}

func (c *Connection) renderClusterSlots() []byte {
	sm := c.w.router.Snapshot()
	ranges := sm.Ranges()
	w := resp.NewWriter()
	w.ArrayHeader(len(ranges))
	for _, r := range ranges {
		nodes := 1 + len(r.Slaves)
		w.ArrayHeader(3 + (nodes - 1))
		w.Integer(int64(r.Start))
		w.Integer(int64(r.End))
		writeClusterNode(w, r.Master)
		for _, s := range r.Slaves {
			writeClusterNode(w, s)
		}
	}
	return w.Bytes()
}

func writeClusterNode(w *resp.Writer, n clusterslot.NodeInfo) {
	host, port, _ := clusterslot.SplitHostPort(n.Addr)
	w.ArrayHeader(3)
	w.BulkString([]byte(host))
	w.Integer(int64(atoiPort(port)))
	w.BulkString([]byte(n.ID))
}

// atoiPort parses a TCP port from a host:port address, clamping out-of-range
// or malformed values into uint16 instead of returning an error a RESP
// integer reply has no room for.
func atoiPort(s string) uint16 {
	var v int
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0
		}
		v = v*10 + int(ch-'0')
	}
	return helpers.ClampIntToUint16(v)
}

func (c *Connection) renderInfo() string {
	snap := c.w.stats.Snapshot()
	pool := c.w.pool.Snapshot()
	sm := c.w.router.Snapshot()
	return fmt.Sprintf(
		"# Proxy\r\n"+
			"completed_commands:%d\r\n"+
			"recv_bytes:%d\r\n"+
			"send_bytes:%d\r\n"+
			"connected_clients:%d\r\n"+
			"remote_errors:%d\r\n"+
			"used_latency_avg_us:%.2f\r\n"+
			"remotes:%s\r\n"+
			"buffer_pool_allocated:%d\r\n"+
			"buffer_pool_free:%d\r\n",
		snap.CompletedCommands, snap.RecvBytes, snap.SendBytes,
		snap.ConnectedClients, snap.RemoteErrors, snap.AvgLatencyUs,
		sm.Remotes(), pool.Allocated, pool.Free,
	)
}

func (c *Connection) handleConfig(args [][]byte) []byte {
	w := resp.NewWriter()
	if len(args) == 0 {
		return w.Error("ERR wrong number of arguments for 'config' command").Bytes()
	}
	switch strings.ToUpper(string(args[0])) {
	case "GET":
		return w.ArrayHeader(0).Bytes()
	case "SET":
		return w.SimpleString("OK").Bytes()
	default:
		return w.Error("ERR unsupported CONFIG subcommand").Bytes()
	}
}

func (c *Connection) handleClient(args [][]byte) []byte {
	w := resp.NewWriter()
	if len(args) == 0 {
		return w.Error("ERR wrong number of arguments for 'client' command").Bytes()
	}
	switch strings.ToUpper(string(args[0])) {
	case "GETNAME":
		return w.BulkString(nil).Bytes()
	case "SETNAME":
		return w.SimpleString("OK").Bytes()
	default:
		return w.SimpleString("OK").Bytes()
	}
}

// forwardBasic routes a single-key command to its owning backend and
// returns the backend's reply verbatim.
func (c *Connection) forwardBasic(ctx context.Context, name, args [][]byte) []byte {
	w := resp.NewWriter()
	if len(args) < 1 {
		return w.Error("ERR wrong number of arguments").Bytes()
	}
	key := args[0]
	_, raw, err := c.sendAndRead(ctx, key, isWriteCommand(name), name, args)
	if err != nil {
		c.w.stats.RecordRemoteError()
		return w.Error(forwardErrorMessage(err)).Bytes()
	}
	return raw
}

// forwardComplex splits a multi-key command into sub-commands, forwards
// each to its owning backend, and re-aggregates their replies.
func (c *Connection) forwardComplex(ctx context.Context, name, args [][]byte, entry classify.Entry) []byte {
	parent := c.arena.New()
	parent.Name = name
	parent.Args = args
	defer c.arena.Free(parent.ID())

	subs := command.Split(c.arena, parent, entry)
	ids := make([]command.ID, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ID()
		key := routingKey(sub.Args, entry)
		_, raw, err := c.sendAndRead(ctx, key, isWriteCommand(name), sub.Name, sub.Args)
		if err != nil {
			c.w.stats.RecordRemoteError()
			sub.Fail(err)
			sub.Reply = resp.NewWriter().Error(forwardErrorMessage(err)).Bytes()
			continue
		}
		sub.Reply = raw
	}

	out := command.Aggregate(c.arena, parent, ids)
	for _, id := range ids {
		c.arena.Free(id)
	}
	return out
}

// routingKey extracts the key a sub-command's slot is computed from. For
// enumerable fan-outs (MGET, MSET, DEL, EXISTS) the sub-command's
// argument list begins with its key. For a single pass-through
// sub-command (EVAL, whose declared key sits at a fixed offset inside
// the full argument list rather than at the front) it is read from the
// offset classify.Entry records.
func routingKey(args [][]byte, entry classify.Entry) []byte {
	if entry.KeyStep == 0 {
		idx := entry.KeyFirst - 1
		if idx < 0 || idx >= len(args) {
			return nil
		}
		return args[idx]
	}
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// forwardErrorMessage maps an internal forwarding failure to the literal
// synthesized reply the error disposition table requires.
func forwardErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRedirect):
		return "ERR Proxy redirecting error"
	case errors.Is(err, clusterslot.ErrNoRoute):
		return "ERR Proxy fail to get server"
	default:
		return "ERR Proxy error"
	}
}

// sendAndRead routes key to its owning backend and forwards the command.
// A MOVED or ASK reply is never retried: the command is failed with
// ErrRedirect and a topology refresh is kicked off, leaving it to the
// client to re-issue the command once the slot map catches up.
func (c *Connection) sendAndRead(ctx context.Context, key []byte, forWrite bool, name []byte, args [][]byte) (*resp.Node, []byte, error) {
	addr, err := c.w.router.Lookup(key, forWrite, c.w.rng)
	if err != nil {
		return nil, nil, err
	}

	fullArgs := make([][]byte, 0, len(args)+1)
	fullArgs = append(fullArgs, name)
	fullArgs = append(fullArgs, args...)

	node, raw, err := c.dispatchOnce(ctx, addr, fullArgs)
	if err != nil {
		return nil, nil, err
	}
	if node.IsError() {
		if _, _, _, ok := parseMovedOrAsk(node.String()); ok {
			c.w.updater.Kick()
			return nil, nil, ErrRedirect
		}
	}
	return node, raw, nil
}

func (c *Connection) dispatchOnce(ctx context.Context, addr string, args [][]byte) (*resp.Node, []byte, error) {
	backend, err := c.w.backends.Get(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	timeout := time.Duration(c.w.cfg.ServerTimeoutSec) * time.Second
	if err := backend.SendCommand(args, timeout); err != nil {
		c.w.backends.Drop(backend)
		return nil, nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	node, raw, err := backend.ReadReply(timeout)
	if err != nil {
		c.w.backends.Drop(backend)
		return nil, nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	c.w.backends.Put(backend)
	return node, raw, nil
}

func isWriteCommand(name []byte) bool {
	switch strings.ToUpper(string(name)) {
	case "GET", "MGET", "EXISTS", "TTL", "PTTL", "STRLEN", "HGET", "HMGET",
		"HGETALL", "HLEN", "HEXISTS", "HKEYS", "HVALS", "LRANGE", "LLEN",
		"LINDEX", "SMEMBERS", "SISMEMBER", "SCARD", "SRANDMEMBER",
		"ZSCORE", "ZRANK", "ZREVRANK", "ZRANGE", "ZREVRANGE",
		"ZRANGEBYSCORE", "ZREVRANGEBYSCORE", "ZCARD", "ZCOUNT",
		"GETBIT", "BITCOUNT", "BITPOS", "PFCOUNT", "DUMP", "TYPE",
		"EXPIRETIME", "PEXPIRETIME", "HSCAN", "SSCAN", "ZSCAN", "HRANDFIELD",
		"TOUCH":
		return false
	default:
		return true
	}
}
