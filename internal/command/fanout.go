package command

import (
	"github.com/corvus-proxy/corvus/internal/classify"
	"github.com/corvus-proxy/corvus/internal/resp"
)

// Split breaks a Complex command's arguments into one sub-command per
// key, according to the classifier's KeyFirst/KeyStep rule. A KeyStep of
// 0 (EVAL) instead produces a single pass-through sub-command carrying
// every argument unchanged, since the command has one declared key
// sitting at a fixed offset rather than an enumerable key list. Each
// sub-command's Args slice aliases the parent's Args; its Raw span is
// left empty. The caller routes and sends every sub-command and then
// combines their replies with Aggregate.
func Split(arena *Arena, parent *Command, entry classify.Entry) []*Command {
	if entry.KeyStep == 0 {
		sub := arena.New()
		sub.Name = parent.Name
		sub.Args = parent.Args
		sub.Parent = parent.id
		parent.Pending = 1
		return []*Command{sub}
	}

	var subs []*Command
	for i := entry.KeyFirst - 1; i < len(parent.Args); i += entry.KeyStep {
		sub := arena.New()
		sub.Name = parent.Name
		end := i + entry.KeyStep
		if end > len(parent.Args) {
			end = len(parent.Args)
		}
		sub.Args = parent.Args[i:end]
		sub.Parent = parent.id
		subs = append(subs, sub)
	}
	parent.Pending = len(subs)
	return subs
}

// Aggregate combines every sub-command's reply into a single reply for
// the parent, shaped to match what a non-cluster client would expect
// from the parent command. If any sub-command failed or replied with a
// RESP error, that first-encountered failure becomes the parent's
// entire reply, regardless of family.
func Aggregate(arena *Arena, parent *Command, subIDs []ID) []byte {
	if failure := firstFailure(arena, subIDs); failure != nil {
		return failure
	}

	w := resp.NewWriter()
	switch string(upper(parent.Name)) {
	case "DEL", "UNLINK", "EXISTS", "TOUCH":
		var total int64
		for _, id := range subIDs {
			sub := arena.Get(id)
			if sub == nil {
				continue
			}
			total += replyAsInt(sub.Reply)
		}
		w.Integer(total)
	case "MSET":
		w.SimpleString("OK")
	case "EVAL", "EVALSHA":
		// single pass-through sub-command: forward its reply verbatim
		if len(subIDs) == 1 {
			if sub := arena.Get(subIDs[0]); sub != nil {
				return sub.Reply
			}
		}
		return w.NullBulkString().Bytes()
	default: // MGET and similar: one array slot per sub-command, in order
		w.ArrayHeader(len(subIDs))
		for _, id := range subIDs {
			sub := arena.Get(id)
			if sub == nil || sub.Reply == nil {
				w.NullBulkString()
				continue
			}
			w.Raw(sub.Reply)
		}
	}
	return w.Bytes()
}

// firstFailure returns the raw reply of the first sub-command that
// either was marked failed or replied with a RESP error, or nil if
// every sub-command succeeded.
func firstFailure(arena *Arena, subIDs []ID) []byte {
	for _, id := range subIDs {
		sub := arena.Get(id)
		if sub == nil {
			continue
		}
		if sub.Failed() || isErrorReply(sub.Reply) {
			return sub.Reply
		}
	}
	return nil
}

func isErrorReply(reply []byte) bool {
	return len(reply) > 0 && reply[0] == byte(resp.Error)
}

func upper(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// replyAsInt extracts the integer value of a :N\r\n reply, used when
// aggregating counting replies like DEL's per-key success count.
func replyAsInt(reply []byte) int64 {
	p := resp.NewParser()
	node, _, err := p.Parse(reply)
	if err != nil || node == nil || node.Type != resp.Integer {
		return 0
	}
	return node.Int
}
