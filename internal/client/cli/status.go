package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.restore(ctx)

	c.io.Println("=== Session Status ===")
	c.io.Println()

	session := c.facade.Session()
	c.io.Printf("State: %s\n", c.facade.State())

	if !session.IsAuthenticated {
		c.io.Println()
		c.io.Println("Run 'jobhunt login' to authenticate.")
		return nil
	}

	c.io.Printf("User: %s <%s>\n", session.User.DisplayName(), session.User.Email)
	if session.User.SubscriptionTier != "" {
		c.io.Printf("Plan: %s\n", session.User.SubscriptionTier)
	}

	exp, err := c.facade.TokenExpiry()
	if err != nil {
		c.io.Printf("Token expires: unknown (%v)\n", err)
	} else {
		c.io.Printf("Token expires: %s\n", exp.Format(time.RFC3339))
		if remaining := time.Until(exp); remaining > 0 {
			c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("⚠️  Access token has expired.")
		}
	}

	if next, ok := c.facade.NextRefresh(); ok {
		c.io.Printf("Next refresh: %s\n", next.Format(time.RFC3339))
	}

	return nil
}

func (c *Cli) runWhoami(ctx context.Context) error {
	c.restore(ctx)

	user := c.facade.User()
	if user == nil {
		return fmt.Errorf("not authenticated. Please run 'jobhunt login' first")
	}

	c.io.Printf("ID: %s\n", user.ID)
	c.io.Printf("Email: %s\n", user.Email)
	c.io.Printf("Name: %s\n", user.DisplayName())
	if user.Role != "" {
		c.io.Printf("Role: %s\n", user.Role)
	}
	if user.SubscriptionTier != "" {
		c.io.Printf("Plan: %s\n", user.SubscriptionTier)
	}
	if user.CreatedAt != "" {
		c.io.Printf("Member since: %s\n", user.CreatedAt)
	}

	return nil
}
