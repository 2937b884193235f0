package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/jobhunt/internal/client/auth"
	"github.com/iudanet/jobhunt/internal/validation"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	firstName, err := c.io.ReadInput("First name (optional): ")
	if err != nil {
		return fmt.Errorf("failed to read first name: %w", err)
	}
	lastName, err := c.io.ReadInput("Last name (optional): ")
	if err != nil {
		return fmt.Errorf("failed to read last name: %w", err)
	}

	password, err := c.getPassword(fmt.Sprintf("Password (min %d chars): ", validation.MinPasswordLen), true)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Registering user...")

	user, err := c.facade.Register(ctx, auth.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("Signed in as %s <%s>\n", user.DisplayName(), user.Email)
	c.io.Println("Your session has been saved.")

	return nil
}
