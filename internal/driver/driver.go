// Package driver provides query access to a loaded NestDB engine library.
//
// The engine exposes a minimal C ABI: open a database file, execute a query
// returning a JSON document, close the handle. This package binds those
// three symbols and decodes the JSON envelope into row maps.
package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nestdb/nestreport/internal/engine"
)

// Engine entry points. The open call returns an opaque handle, zero on
// failure.
const (
	openSymbol  = "nestdb_open"
	execSymbol  = "nestdb_exec_json"
	closeSymbol = "nestdb_close"
)

// ErrClosed is returned when a connection is used after Close.
var ErrClosed = errors.New("driver: connection is closed")

// Row is one result row, keyed by column name.
type Row = map[string]any

// Conn is an open database connection.
type Conn interface {
	// Query executes a query and returns its rows.
	Query(query string) ([]Row, error)
	Close() error
}

// Driver opens connections against database files.
type Driver interface {
	Open(path string) (Conn, error)
}

// binding holds the resolved engine entry points as Go functions.
type binding struct {
	open func(path string) uintptr
	exec func(handle uintptr, query string) string
	clos func(handle uintptr)
}

// nativeDriver is the Driver backed by a loaded engine library.
type nativeDriver struct {
	b binding
}

// New binds the engine's query ABI from an already-loaded library.
func New(lib engine.Library) (Driver, error) {
	var b binding
	for _, sym := range []struct {
		name string
		fn   any
	}{
		{openSymbol, &b.open},
		{execSymbol, &b.exec},
		{closeSymbol, &b.clos},
	} {
		addr, err := lib.Lookup(sym.name)
		if err != nil {
			return nil, fmt.Errorf("driver: engine library does not export %s: %w", sym.name, err)
		}
		if addr == 0 {
			return nil, fmt.Errorf("driver: engine library does not export %s", sym.name)
		}
		registerFunc(sym.fn, addr)
	}
	return &nativeDriver{b: b}, nil
}

// Open opens the database file at path.
func (d *nativeDriver) Open(path string) (Conn, error) {
	handle := d.b.open(path)
	if handle == 0 {
		return nil, fmt.Errorf("driver: open %s: engine returned a null handle", path)
	}
	return &nativeConn{b: d.b, handle: handle}, nil
}

// nativeConn is a Conn over an engine handle. Safe for concurrent use;
// the engine serializes per-handle access, the mutex guards the closed
// state.
type nativeConn struct {
	b      binding
	mu     sync.Mutex
	handle uintptr
	closed bool
}

// envelope is the engine's JSON result document.
type envelope struct {
	Error string `json:"error"`
	Rows  []Row  `json:"rows"`
}

func (c *nativeConn) Query(query string) ([]Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	raw := c.b.exec(c.handle, query)
	if raw == "" {
		return nil, fmt.Errorf("driver: engine returned an empty result for %q", query)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("driver: decode result: %w", err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("driver: query failed: %s", env.Error)
	}
	return env.Rows, nil
}

func (c *nativeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.b.clos(c.handle)
	c.handle = 0
	return nil
}
