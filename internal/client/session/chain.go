package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicreport/internal/logging"
)

// Receipt proves that a session has been written to storage. The only way
// to obtain a valid Receipt is Chain.Save; Store.Login accepts nothing else.
type Receipt struct {
	session  Session
	remember bool
	written  bool
}

// Session returns the session that was saved.
func (r Receipt) Session() Session { return r.session }

// Remember reports whether the session went to durable storage.
func (r Receipt) Remember() bool { return r.remember }

// Chain is the ordered list of storage backends holding the session: the
// durable backend first, the session-scoped backend second.
type Chain struct {
	key      string
	durable  Backend
	scoped   Backend
	backends []Backend
	logger   logging.Logger
}

// NewChain builds a chain that stores the session under key.
func NewChain(key string, durable, scoped Backend, logger logging.Logger) *Chain {
	return &Chain{
		key:      key,
		durable:  durable,
		scoped:   scoped,
		backends: []Backend{durable, scoped},
		logger:   logger.With("module", "session.chain"),
	}
}

// Load returns the payload of the first backend that holds the key, or nil
// when none does. A backend that fails to read is logged and skipped.
func (c *Chain) Load(ctx context.Context) []byte {
	for i, b := range c.backends {
		v, err := b.Get(ctx, c.key)
		if err != nil {
			c.logger.Warn(ctx, "storage read failed", "backend", i, "error", err)
			continue
		}
		if v != nil {
			return v
		}
	}
	return nil
}

// Save writes s to the durable backend when remember is set, to the
// session-scoped backend otherwise, and removes any copy left in the other
// one. The returned Receipt is what Store.Login expects.
func (c *Chain) Save(ctx context.Context, s Session, remember bool) (Receipt, error) {
	raw, err := Encode(s)
	if err != nil {
		return Receipt{}, err
	}

	target, other := c.scoped, c.durable
	if remember {
		target, other = c.durable, c.scoped
	}

	if err := target.Set(ctx, c.key, raw); err != nil {
		return Receipt{}, fmt.Errorf("save session: %w", err)
	}
	if err := other.Remove(ctx, c.key); err != nil {
		c.logger.Warn(ctx, "failed to remove stale session copy", "error", err)
	}

	return Receipt{session: s, remember: remember, written: true}, nil
}

// Remembered reports whether the durable backend holds the session.
func (c *Chain) Remembered(ctx context.Context) bool {
	v, err := c.durable.Get(ctx, c.key)
	return err == nil && v != nil
}

// Erase removes the key from every backend. Failures are joined.
func (c *Chain) Erase(ctx context.Context) error {
	var errs []error
	for _, b := range c.backends {
		if err := b.Remove(ctx, c.key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
