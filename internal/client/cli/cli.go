package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iudanet/jobhunt/internal/client/auth"
	"github.com/iudanet/jobhunt/internal/client/iocli"
)

// PasswordEnv - переменная окружения с паролем для login/register
const PasswordEnv = "JOBHUNT_PASSWORD"

// DefaultWatchInterval - период вывода состояния в watch
const DefaultWatchInterval = 30 * time.Second

// ErrUnknownCommand - команда не распознана
var ErrUnknownCommand = errors.New("unknown command")

// Passwords - источники пароля из флагов
type Passwords struct {
	FromFile string
	FromArgs string
}

// Options - параметры команд
type Options struct {
	// Gatherer - источник метрик для /metrics в watch; nil отключает эндпоинт
	Gatherer      prometheus.Gatherer
	Passwords     Passwords
	MetricsAddr   string
	WatchInterval time.Duration
}

// Cli выполняет команды поверх auth.Facade
type Cli struct {
	io     iocli.IO
	facade *auth.Facade
	logger *slog.Logger
	opts   Options
}

func New(io iocli.IO, facade *auth.Facade, opts Options, logger *slog.Logger) *Cli {
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = DefaultWatchInterval
	}
	return &Cli{
		io:     io,
		facade: facade,
		logger: logger,
		opts:   opts,
	}
}

// Run выполняет команду. args - аргументы после имени команды.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "whoami":
		return c.runWhoami(ctx)
	case "refresh":
		return c.runRefresh(ctx)
	case "watch":
		return c.runWatch(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// restore поднимает сохраненную сессию. Ошибка не фатальна: сессия уже закрыта,
// команда покажет состояние "не авторизован".
func (c *Cli) restore(ctx context.Context) {
	if _, err := c.facade.Start(ctx); err != nil {
		c.logger.Debug("stored session could not be restored", "error", err)
		c.io.Printf("Stored session is no longer valid: %v\n", err)
	}
}

// getPassword retrieves the password from various sources with priority:
// 1. Environment variable JOBHUNT_PASSWORD
// 2. File specified in Passwords.FromFile
// 3. Command-line parameter Passwords.FromArgs
// 4. Interactive prompt (fallback)
func (c *Cli) getPassword(prompt string, confirm bool) (string, error) {
	// Priority 1: Environment variable
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if c.opts.Passwords.FromFile != "" {
		content, err := os.ReadFile(c.opts.Passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: CLI parameter
	if c.opts.Passwords.FromArgs != "" {
		return c.opts.Passwords.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback)
	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	if confirm {
		again, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if again != password {
			return "", fmt.Errorf("passwords do not match")
		}
	}

	return password, nil
}

func PrintUsage(w io.Writer) {
	lines := []string{
		"JobHunt Client",
		"",
		"Usage:",
		"  jobhunt [OPTIONS] COMMAND",
		"",
		"Options:",
		"  -version                 Show version information",
		"  -config PATH             Path to YAML config (default: $JOBHUNT_CONFIG or ./jobhunt.yaml)",
		"  -server URL              API base URL (default: http://localhost:3001/api)",
		"  -db PATH                 Path to local token database (default: jobhunt-client.db)",
		"  -driver NAME             Token storage: bolt or sqlite (default: bolt)",
		"  -password PASSWORD       Account password (not recommended, use env var or file)",
		"  -password-file PATH      Path to file containing the account password",
		"  -log-level LEVEL         debug, info, warn, error (default: info)",
		"  -metrics-addr ADDR       Serve Prometheus metrics while watching (e.g. :9464)",
		"",
		"Password Priority (highest to lowest):",
		"  1. JOBHUNT_PASSWORD environment variable",
		"  2. -password-file (file path)",
		"  3. -password (command line)",
		"  4. Interactive prompt (fallback)",
		"",
		"Set JOBHUNT_TOKEN_PASSPHRASE to encrypt stored tokens.",
		"",
		"Commands:",
		"  register                Create an account and sign in",
		"  login [email]           Sign in",
		"  logout                  Sign out and forget stored tokens",
		"  status                  Show session state and token expiry",
		"  whoami                  Show the signed-in user",
		"  refresh                 Refresh the token pair now",
		"  watch                   Keep the session alive until interrupted",
		"  version                 Show version information",
		"",
		"Examples:",
		"  jobhunt login anna@example.com",
		"  JOBHUNT_PASSWORD='s3cret-pass' jobhunt login anna@example.com",
		"  jobhunt -metrics-addr :9464 watch",
		"  jobhunt -server https://api.example.com/api status",
	}
	for _, l := range lines {
		_, _ = fmt.Fprintln(w, l)
	}
}
