package datastore

import (
	"context"
	"time"
)

// Probe checks connectivity with up to ProbeRetries attempts, waiting
// ProbeBackoff*attempt between failures. The first success seeds default
// rows. It returns whether the store is reachable.
func (c *Client) Probe(ctx context.Context) bool {
	if !c.Configured() {
		c.logger.Warn().Msg("database not configured, skipping connectivity probe")
		return false
	}

	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= c.opts.ProbeRetries; attempt++ {
		err := c.conn.Ping(ctx)
		c.record(attempt, err)
		if err == nil {
			c.logger.Info().Int("attempt", attempt).Msg("database connection established")
			c.seedOnce(ctx)
			return true
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", c.opts.ProbeRetries).
			Msg("database connection attempt failed")

		if attempt < c.opts.ProbeRetries {
			if err := c.opts.Sleep(ctx, c.opts.ProbeBackoff*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	c.mu.Lock()
	c.state = StateDisconnected
	if lastErr != nil {
		c.lastErr = lastErr.Error()
	}
	c.mu.Unlock()
	c.logger.Error().Err(lastErr).Msg("database unreachable after retries")
	return false
}

func (c *Client) record(attempt int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = attempt
	c.checkedAt = time.Now().UTC()
	if err != nil {
		c.lastErr = err.Error()
		return
	}
	c.state = StateConnected
	c.lastErr = ""
}

func (c *Client) seedOnce(ctx context.Context) {
	c.mu.Lock()
	if c.seeded {
		c.mu.Unlock()
		return
	}
	c.seeded = true
	c.mu.Unlock()

	if err := c.opts.Seed(ctx, c.conn); err != nil {
		c.logger.Error().Err(err).Msg("seeding default data failed")
		c.mu.Lock()
		c.seeded = false
		c.mu.Unlock()
	}
}
