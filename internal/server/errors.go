package server

import "errors"

// Sentinel errors tested with errors.Is against the command disposition
// table.
var (
	// ErrUnknownCommand is returned when a client sends a command name
	// not present in the classifier's table.
	ErrUnknownCommand = errors.New("server: unknown command")
	// ErrUnimplemented is returned for a recognized but unsupported
	// command.
	ErrUnimplemented = errors.New("server: command not implemented")
	// ErrNoBackend is returned when a command cannot be routed because
	// no topology has been published yet, or the owning slot has no
	// known owner.
	ErrNoBackend = errors.New("server: no backend available for key")
	// ErrBackendUnavailable is returned when a routed backend connection
	// could not be established or failed mid-request.
	ErrBackendUnavailable = errors.New("server: backend unavailable")
	// ErrRedirect is returned when a backend replies MOVED or ASK; the
	// command is failed outright and a topology refresh is kicked off
	// rather than transparently retried against the redirect target.
	ErrRedirect = errors.New("server: command redirected")
	// ErrProtocol is returned when a client sends malformed RESP that
	// can never become valid; the connection is closed.
	ErrProtocol = errors.New("server: protocol error")
	// ErrAuthRequired is returned when requirepass is set and a command
	// arrives on an unauthenticated connection.
	ErrAuthRequired = errors.New("server: authentication required")
	// ErrWrongPass is returned when AUTH is sent with an incorrect
	// password.
	ErrWrongPass = errors.New("server: invalid password")
)
