// Package cache keeps prepared statements for reuse on one connection.
package cache

import (
	"database/sql"
	"errors"
	"sync"
)

// Stats represents statement cache statistics
type Stats struct {
	Hits    int64
	Misses  int64
	Size    int
	HitRate float64
}

// StmtCache maps literal SQL text to a prepared statement. It is unbounded;
// entries live until Invalidate or Close.
type StmtCache struct {
	mu    sync.Mutex
	stmts map[string]*sql.Stmt
	stats Stats
}

// NewStmtCache creates an empty statement cache
func NewStmtCache() *StmtCache {
	return &StmtCache{stmts: make(map[string]*sql.Stmt)}
}

// Get returns the statement prepared for query, if any
func (c *StmtCache) Get(query string) (*sql.Stmt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt, ok := c.stmts[query]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return stmt, true
}

// Put stores stmt under query. A statement already cached for the same text
// is closed and replaced.
func (c *StmtCache) Put(query string, stmt *sql.Stmt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.stmts[query]; ok && old != stmt {
		_ = old.Close()
	}
	c.stmts[query] = stmt
}

// Invalidate closes and removes the statement for query
func (c *StmtCache) Invalidate(query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt, ok := c.stmts[query]
	if !ok {
		return nil
	}
	delete(c.stmts, query)
	return stmt.Close()
}

// Len returns the number of cached statements
func (c *StmtCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stmts)
}

// Close closes every cached statement and empties the cache. Hit and miss
// counters are kept.
func (c *StmtCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for query, stmt := range c.stmts {
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.stmts, query)
	}
	return errors.Join(errs...)
}

// GetStats returns cache statistics
func (c *StmtCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.stmts)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}
