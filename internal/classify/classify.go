// Package classify determines how Corvus routes each incoming command:
// as a single-key passthrough, a multi-key fan-out, a locally synthesized
// reply, or an outright rejection. The table is built once at package
// init from BASIC/COMPLEX/EXTRA/UNIMPL command lists.
package classify

import "strings"

// Kind describes how a command must be handled by the pipeline.
type Kind int

const (
	// Unknown commands are rejected with an unsupported-command error.
	Unknown Kind = iota
	// Basic commands address exactly one key and are forwarded verbatim
	// to the single backend owning that key's slot.
	Basic
	// Complex commands address multiple keys (or, like EVAL, one key at
	// a fixed offset) and must be split, fanned out to each owning
	// backend, and their replies re-aggregated into one client reply.
	Complex
	// Extra commands never reach a backend: Corvus answers them locally
	// from proxy-side state (PING, INFO, CLUSTER, AUTH, PROXY, ...).
	Extra
	// Unimplemented commands are syntactically known but not supported
	// by this proxy and are rejected with a clear error rather than
	// silently forwarded.
	Unimplemented
)

// Entry describes one command's classification and key-extraction rule.
type Entry struct {
	Name Kind
	// KeyFirst is the 1-based index of the command's first key
	// argument, used by Basic commands and as the starting point for
	// Complex commands' key enumeration. 0 means "no key argument".
	KeyFirst int
	// KeyStep is the stride between successive key arguments for
	// Complex commands that interleave keys with values (MSET k1 v1 k2
	// v2 ...); 1 means every argument from KeyFirst on is a key (MGET,
	// DEL, EXISTS). 0 marks a Complex command that does not enumerate
	// keys at all: Split produces one pass-through sub-command carrying
	// every argument, and KeyFirst instead names the fixed offset of its
	// single routing key within that argument list (EVAL's declared key).
	KeyStep int
}

var table = map[string]Entry{}

func register(kind Kind, keyFirst, keyStep int, names ...string) {
	for _, n := range names {
		table[strings.ToUpper(n)] = Entry{Name: kind, KeyFirst: keyFirst, KeyStep: keyStep}
	}
}

func init() {
	// BASIC: single-key commands forwarded verbatim to one backend.
	register(Basic, 1, 0,
		"GET", "SET", "SETNX", "SETEX", "PSETEX", "APPEND", "STRLEN",
		"GETSET", "GETDEL", "GETEX", "INCR", "DECR", "INCRBY", "DECRBY",
		"INCRBYFLOAT", "SETRANGE", "GETRANGE", "EXPIRE", "PEXPIRE",
		"EXPIREAT", "PEXPIREAT", "TTL", "PTTL", "PERSIST", "TYPE",
		"DUMP", "RESTORE", "SORT",
		"HSET", "HSETNX", "HGET", "HMSET", "HMGET", "HGETALL", "HDEL",
		"HLEN", "HEXISTS", "HINCRBY", "HINCRBYFLOAT", "HKEYS", "HVALS",
		"HSCAN", "HRANDFIELD", "HSTRLEN",
		"LPUSH", "RPUSH", "LPUSHX", "RPUSHX", "LPOP", "RPOP", "LLEN",
		"LRANGE", "LINDEX", "LSET", "LREM", "LTRIM", "LINSERT", "RPOPLPUSH",
		"SADD", "SREM", "SMEMBERS", "SISMEMBER", "SCARD", "SPOP",
		"SRANDMEMBER", "SSCAN", "SDIFF", "SDIFFSTORE", "SINTER",
		"SINTERSTORE", "SMOVE", "SUNION", "SUNIONSTORE",
		"ZADD", "ZREM", "ZSCORE", "ZRANK", "ZREVRANK", "ZRANGE",
		"ZREVRANGE", "ZRANGEBYSCORE", "ZREVRANGEBYSCORE", "ZCARD",
		"ZCOUNT", "ZINCRBY", "ZSCAN", "ZINTERSTORE", "ZUNIONSTORE",
		"ZLEXCOUNT", "ZRANGEBYLEX", "ZREVRANGEBYLEX", "ZREMRANGEBYLEX",
		"ZREMRANGEBYRANK", "ZREMRANGEBYSCORE",
		"SETBIT", "GETBIT", "BITCOUNT", "BITPOS",
		"PFADD", "PFCOUNT", "PFMERGE",
		"EXPIRETIME", "PEXPIRETIME",
	)

	// COMPLEX: multi-key commands requiring fan-out and re-aggregation.
	register(Complex, 1, 1, "MGET", "DEL", "UNLINK", "EXISTS", "TOUCH")
	register(Complex, 1, 2, "MSET")
	register(Complex, 3, 0, "EVAL")

	// EXTRA: answered locally, never forwarded.
	register(Extra, 0, 0,
		"PING", "AUTH", "HELLO", "COMMAND",
		"CLUSTER", "INFO", "CONFIG", "CLIENT", "SHUTDOWN", "PROXY",
	)

	// UNIMPL: recognized by name but explicitly out of scope.
	register(Unimplemented, 0, 0,
		"MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH",
		"SUBSCRIBE", "UNSUBSCRIBE", "PUBLISH", "PSUBSCRIBE", "PUNSUBSCRIBE",
		"SCRIPT", "FUNCTION", "WAIT", "MIGRATE",
		"KEYS", "SCAN", "FLUSHALL", "FLUSHDB", "SWAPDB",
		"RENAME", "RENAMENX", "MSETNX", "EVALSHA",
		"ECHO", "QUIT", "SELECT",
		"MOVE", "OBJECT", "RANDOMKEY", "BITOP",
		"BLPOP", "BRPOP", "BRPOPLPUSH",
	)
}

// Classify looks up a command by name, case-insensitively. The bool
// result reports whether the command is known at all; an unknown
// command's Entry.Name is always Unknown.
func Classify(name []byte) (Entry, bool) {
	e, ok := table[strings.ToUpper(string(name))]
	return e, ok
}
