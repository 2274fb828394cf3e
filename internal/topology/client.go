package topology

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/corvus-proxy/corvus/internal/clusterslot"
	"github.com/corvus-proxy/corvus/internal/resp"
)

// dialTimeout and readTimeout bound a single CLUSTER SLOTS round trip so
// a hung node cannot stall the refresh goroutine indefinitely.
const (
	dialTimeout = 3 * time.Second
	readTimeout = 3 * time.Second
)

// FetchSlots opens a short-lived connection to addr, issues CLUSTER
// SLOTS, and parses the reply into shard ranges.
func FetchSlots(ctx context.Context, addr string) ([]clusterslot.ShardRange, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(readTimeout))
	if _, err := conn.Write([]byte("*2\r\n$7\r\nCLUSTER\r\n$5\r\nSLOTS\r\n")); err != nil {
		return nil, fmt.Errorf("write CLUSTER SLOTS to %s: %w", addr, err)
	}

	node, err := readFullReply(conn)
	if err != nil {
		return nil, fmt.Errorf("read CLUSTER SLOTS reply from %s: %w", addr, err)
	}
	if node.IsError() {
		return nil, fmt.Errorf("CLUSTER SLOTS on %s: %s", addr, node.String())
	}
	return parseSlotsReply(node)
}

// readFullReply reads from conn until a complete RESP value has
// accumulated, growing its buffer as needed.
func readFullReply(conn net.Conn) (*resp.Node, error) {
	p := resp.NewParser()
	buf := make([]byte, 4096)
	total := 0

	for {
		node, _, err := p.Parse(buf[:total])
		if err == nil {
			return node, nil
		}
		if err != resp.ErrIncomplete {
			return nil, err
		}
		if total == len(buf) {
			grown := make([]byte, len(buf)*2)
			copy(grown, buf)
			buf = grown
		}
		n, rerr := conn.Read(buf[total:])
		if rerr != nil {
			return nil, rerr
		}
		total += n
	}
}

// parseSlotsReply converts a CLUSTER SLOTS array reply into shard
// ranges. Each top-level element is
// [start, end, [masterIP, masterPort, nodeID?], [slaveIP, slavePort, ...]*].
func parseSlotsReply(node *resp.Node) ([]clusterslot.ShardRange, error) {
	if node.Type != resp.Array {
		return nil, fmt.Errorf("CLUSTER SLOTS: expected array reply")
	}
	ranges := make([]clusterslot.ShardRange, 0, node.NArgs())
	for _, elem := range node.Elems {
		if elem.Type != resp.Array || len(elem.Elems) < 3 {
			return nil, fmt.Errorf("CLUSTER SLOTS: malformed shard entry")
		}
		start := int(elem.Elems[0].Int)
		end := int(elem.Elems[1].Int)

		master, err := nodeFromEntry(elem.Elems[2])
		if err != nil {
			return nil, err
		}
		master.IsMaster = true

		var slaves []clusterslot.NodeInfo
		for _, s := range elem.Elems[3:] {
			n, err := nodeFromEntry(s)
			if err != nil {
				continue
			}
			slaves = append(slaves, n)
		}

		ranges = append(ranges, clusterslot.ShardRange{
			Start: start, End: end, Master: master, Slaves: slaves,
		})
	}
	return ranges, nil
}

func nodeFromEntry(n *resp.Node) (clusterslot.NodeInfo, error) {
	if n.Type != resp.Array || len(n.Elems) < 2 {
		return clusterslot.NodeInfo{}, fmt.Errorf("CLUSTER SLOTS: malformed node entry")
	}
	ip := n.Elems[0].String()
	port := n.Elems[1].Int
	id := ""
	if len(n.Elems) >= 3 {
		id = n.Elems[2].String()
	}
	return clusterslot.NodeInfo{ID: id, Addr: fmt.Sprintf("%s:%d", ip, port)}, nil
}
