// Package testutil provides a stub database/sql driver for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var driverSeq atomic.Uint64

// Row is one stored session row.
type Row struct {
	ID      string
	EndedAt time.Time
	Reason  string
	Payload []byte
}

// StubConn records statements and keeps session rows in memory. It
// understands exactly the statements the postgres store issues.
type StubConn struct {
	mu        sync.Mutex
	Execs     []string
	Rows      map[string]Row
	FailPing  bool
	FailExec  bool
	FailQuery bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string]Row)}
	name := fmt.Sprintf("stubpg%d", driverSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("transactions not supported") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	up := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(up, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(up, "INSERT INTO SESSIONS"):
		if len(args) != 4 {
			return nil, fmt.Errorf("insert expects 4 args, got %d", len(args))
		}
		row := Row{Reason: fmt.Sprint(args[2].Value)}
		row.ID, _ = args[0].Value.(string)
		row.EndedAt, _ = args[1].Value.(time.Time)
		row.Payload, _ = args[3].Value.([]byte)
		c.Rows[row.ID] = row
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", query)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	up := strings.ToUpper(query)
	if !strings.HasPrefix(strings.TrimSpace(up), "SELECT PAYLOAD FROM SESSIONS") {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	var matched []Row
	for _, row := range c.Rows {
		matched = append(matched, row)
	}
	if strings.Contains(up, "WHERE ID") {
		id, _ := args[0].Value.(string)
		matched = matched[:0]
		if row, ok := c.Rows[id]; ok {
			matched = append(matched, row)
		}
	}
	if strings.Contains(up, "ORDER BY ENDED_AT DESC") {
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].EndedAt.Equal(matched[j].EndedAt) {
				return matched[i].EndedAt.After(matched[j].EndedAt)
			}
			return matched[i].ID < matched[j].ID
		})
	}
	if strings.Contains(up, "LIMIT") && len(args) > 0 {
		if n, ok := args[len(args)-1].Value.(int64); ok && int(n) < len(matched) {
			matched = matched[:n]
		}
	}
	values := make([][]driver.Value, 0, len(matched))
	for _, row := range matched {
		values = append(values, []driver.Value{row.Payload})
	}
	return &stubRows{cols: []string{"payload"}, rows: values}, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
