package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/corvus-proxy/corvus/internal/buffer"
	"github.com/corvus-proxy/corvus/internal/classify"
	"github.com/corvus-proxy/corvus/internal/command"
	"github.com/corvus-proxy/corvus/internal/resp"
)

// Connection is one client's single-goroutine-owned session: exactly
// one goroutine ever reads from, parses, or writes to a Connection, so
// none of its fields need locking.
type Connection struct {
	id   string
	conn net.Conn
	w    *Worker

	rbuf   *buffer.Buffer
	parser *resp.Parser
	arena  *command.Arena

	authenticated bool
	selectedDB    int

	closed bool
}

func newConnection(conn net.Conn, w *Worker) *Connection {
	return &Connection{
		id:            uuid.NewString(),
		conn:          conn,
		w:             w,
		rbuf:          w.pool.Get(),
		parser:        resp.NewParser(),
		arena:         command.NewArena(),
		authenticated: w.cfg.RequirePass == "",
	}
}

// serve runs the connection's read-parse-route-reply loop until the
// connection errors, the client disconnects, or ctx is cancelled.
func (c *Connection) serve(ctx context.Context) {
	defer c.teardown()
	c.w.stats.ClientConnected()
	c.w.idle.Touch(c)
	c.w.logger.Debug("connection accepted", "conn_id", c.id, "remote", remoteIPString(c.conn.RemoteAddr()))

	for {
		if ctx.Err() != nil {
			return
		}
		node, consumed, err := c.readOne()
		if err != nil {
			if err != errConnClosed {
				c.w.logger.Debug("connection closed", "conn_id", c.id, "error", err, "remote", remoteIPString(c.conn.RemoteAddr()))
			}
			return
		}
		c.w.idle.Touch(c)
		c.rbuf.Consume(consumed)

		reply := c.handle(ctx, node)
		if reply != nil {
			if _, werr := c.conn.Write(reply); werr != nil {
				return
			}
			c.w.stats.RecordSend(len(reply))
		}
	}
}

var errConnClosed = fmt.Errorf("server: connection closed")

// readOne blocks until one full RESP value has been parsed from the
// connection, growing the read buffer as needed.
func (c *Connection) readOne() (*resp.Node, int, error) {
	for {
		node, n, err := c.parser.Parse(c.rbuf.ReadSlice())
		if err == nil {
			return node, n, nil
		}
		if err != resp.ErrIncomplete {
			return nil, 0, err
		}
		if err := c.fill(); err != nil {
			return nil, 0, err
		}
	}
}

// fill reads more bytes into the connection's buffer, growing to a
// fresh larger buffer (copying over any unconsumed tail) when the
// current one is full.
func (c *Connection) fill() error {
	if c.rbuf.Writable() == 0 {
		grown := buffer.NewBuffer(c.rbuf.Cap() * 2)
		grown.Retain()
		n := copy(grown.WriteSlice(), c.rbuf.ReadSlice())
		grown.Advance(n)
		c.rbuf.Release()
		c.rbuf = grown
	}

	if c.w.cfg.ClientTimeoutSec > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(time.Duration(c.w.cfg.ClientTimeoutSec) * time.Second))
	}
	n, err := c.conn.Read(c.rbuf.WriteSlice())
	if err != nil {
		return errConnClosed
	}
	c.rbuf.Advance(n)
	c.w.stats.RecordRecv(n)
	return nil
}

// handle classifies and executes one parsed command, returning the
// bytes to write back to the client.
func (c *Connection) handle(ctx context.Context, node *resp.Node) []byte {
	start := time.Now()
	defer func() { c.w.stats.RecordCommand(time.Since(start).Nanoseconds()) }()

	if node.NArgs() == 0 {
		return resp.NewWriter().Error("ERR empty command").Bytes()
	}
	name := node.Arg(0)
	args := make([][]byte, node.NArgs()-1)
	for i := 1; i < node.NArgs(); i++ {
		args[i-1] = node.Arg(i)
	}

	if !c.authenticated && !isAuthExempt(name) {
		return resp.NewWriter().Error("NOAUTH Authentication required.").Bytes()
	}

	entry, known := classify.Classify(name)
	if !known {
		c.w.stats.RecordRemoteError()
		return resp.NewWriter().Error("ERR Proxy error").Bytes()
	}

	switch entry.Name {
	case classify.Extra:
		return c.handleExtra(name, args)
	case classify.Unimplemented:
		c.w.stats.RecordRemoteError()
		return resp.NewWriter().Error("ERR Proxy error").Bytes()
	case classify.Basic:
		return c.forwardBasic(ctx, name, args)
	case classify.Complex:
		return c.forwardComplex(ctx, name, args, entry)
	default:
		return resp.NewWriter().Error("ERR internal classification error").Bytes()
	}
}

func isAuthExempt(name []byte) bool {
	s := string(name)
	return s == "AUTH" || s == "auth" || s == "HELLO" || s == "hello" || s == "QUIT" || s == "quit"
}

// closeIdle is invoked by the IdleTimer from its own goroutine; it only
// closes the socket, which makes the owning connection's blocking Read
// return an error and unwind serve() on its own goroutine, preserving
// single-owner semantics for everything else.
func (c *Connection) closeIdle() {
	_ = c.conn.Close()
}

func (c *Connection) teardown() {
	c.w.idle.Forget(c)
	c.w.stats.ClientDisconnected()
	c.rbuf.Release()
	_ = c.conn.Close()
}
