package client

import (
	"context"
	"fmt"
)

// TransactionFunc is a function that runs within a transaction
type TransactionFunc func(c *Client) error

// TxDepth returns the number of open begin calls; 0 means no transaction.
func (c *Client) TxDepth() int {
	return c.txDepth
}

// Begin opens a transaction. Only the outermost call sends START TRANSACTION;
// nested calls increment the depth.
func (c *Client) Begin(ctx context.Context) error {
	if c.txDepth > 0 {
		c.txDepth++
		return nil
	}
	if _, err := c.QueryRaw(ctx, "START TRANSACTION"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.txDepth = 1
	return nil
}

// Commit closes one level. Only the outermost level sends COMMIT.
func (c *Client) Commit(ctx context.Context) error {
	return c.finish(ctx, "COMMIT", "commit")
}

// Rollback closes one level. Only the outermost level sends ROLLBACK; an
// inner rollback does not undo statements run since the matching Begin.
func (c *Client) Rollback(ctx context.Context) error {
	return c.finish(ctx, "ROLLBACK", "roll back")
}

func (c *Client) finish(ctx context.Context, stmt, verb string) error {
	switch {
	case c.txDepth == 0:
		return ErrNoTransaction
	case c.txDepth > 1:
		c.txDepth--
		return nil
	}

	if _, err := c.QueryRaw(ctx, stmt); err != nil {
		return fmt.Errorf("failed to %s transaction: %w", verb, err)
	}
	c.txDepth = 0
	return nil
}

// Transaction executes fn between Begin and Commit.
// If fn returns an error or panics, the level is rolled back instead.
// Calls nest like Begin does.
func (c *Client) Transaction(ctx context.Context, fn TransactionFunc) error {
	if err := c.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = c.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(c); err != nil {
		if rbErr := c.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := c.Commit(ctx); err != nil {
		return err
	}
	return nil
}
