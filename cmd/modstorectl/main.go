// main.go — modstorectl, операторская CLI каталога Mod Store.
// Работает с тем же бэкендом, что и сервер: PostgreSQL и S3 из MS_* переменных.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/bootstrap"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/config"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
)

// connection — открытый бэкенд и параметры каталога.
type connection struct {
	client   backend.Client
	debounce time.Duration
	limits   service.UploadLimits
	close    func()
}

// opener открывает подключение к бэкенду.
type opener func(ctx context.Context, logger *slog.Logger) (*connection, error)

// openFromEnv подключается к бэкенду по конфигурации из окружения.
func openFromEnv(ctx context.Context, logger *slog.Logger) (*connection, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	be, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &connection{
		client:   be.Client,
		debounce: cfg.SearchDebounce,
		limits: service.UploadLimits{
			PreviewMaxBytes: cfg.PreviewMaxBytes,
			PayloadMaxBytes: cfg.PayloadMaxBytes,
		},
		close: be.Close,
	}, nil
}

// cli — общее состояние команд.
type cli struct {
	open    opener
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
	output  string
	timeout time.Duration
	verbose bool
}

// newRootCmd собирает дерево команд.
func newRootCmd(open opener, in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{open: open, in: in, out: out}

	root := &cobra.Command{
		Use:   "modstorectl",
		Short: "Operator CLI for the Mod Store catalog",
		Long: `modstorectl reads and updates the Mod Store catalog directly
through the configured PostgreSQL and S3 backends.

Available commands:
  list   - List catalog items with search, filters and sorting
  show   - Show a single item
  stats  - Show catalog statistics
  browse - Interactive search over stdin (debounced)
  upload - Upload a new item as an administrator`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := parseFormat(c.output); err != nil {
				return err
			}
			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			c.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&c.output, "output", "o", "text", "Output format: text, json, yaml")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Minute, "Operation timeout")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		c.listCmd(),
		c.showCmd(),
		c.statsCmd(),
		c.browseCmd(),
		c.uploadCmd(),
	)
	return root
}

// connect открывает бэкенд с таймаутом операции.
func (c *cli) connect(cmd *cobra.Command) (context.Context, *connection, func(), error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	conn, err := c.open(ctx, c.logger)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, conn, func() {
		conn.close()
		cancel()
	}, nil
}

func main() {
	if err := newRootCmd(openFromEnv, os.Stdin, os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
