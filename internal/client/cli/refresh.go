package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runRefresh(ctx context.Context) error {
	c.restore(ctx)

	if !c.facade.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'jobhunt login' first")
	}

	if err := c.facade.RefreshToken(ctx); err != nil {
		return fmt.Errorf("refresh failed, please login again: %w", err)
	}

	c.io.Println("✓ Tokens refreshed")
	if exp, err := c.facade.TokenExpiry(); err == nil {
		c.io.Printf("Access token expires: %s\n", exp.Format(time.RFC3339))
	}

	return nil
}
