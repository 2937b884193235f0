package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = c.io.ReadInput("Email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	password, err := c.getPassword("Password: ", false)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	user, err := c.facade.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Signed in as %s <%s>\n", user.DisplayName(), user.Email)
	if exp, err := c.facade.TokenExpiry(); err == nil {
		c.io.Printf("Access token expires: %s\n", exp.Format(time.RFC3339))
	}
	c.io.Println("Your session has been saved.")

	return nil
}
