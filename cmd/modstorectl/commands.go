// commands.go — команды list, show, stats и upload.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/query"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/view"
)

func (c *cli) listCmd() *cobra.Command {
	var p query.Params
	var sortKey string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		Long: `List catalog items, newest first by default.

Search matches title, description and tags (case-insensitive).
Category and character filters require an exact (case-insensitive) match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := query.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			p.Sort = key

			ctx, conn, done, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			catalog := service.NewCatalogStore(conn.client.Documents, 0, c.logger)
			items, err := catalog.Refresh(ctx)
			if err != nil {
				return err
			}
			res := listResultOf(query.Run(items, p))
			return c.print(res, func(w io.Writer) error { return writeCards(w, res) })
		},
	}
	cmd.Flags().StringVarP(&p.Search, "search", "s", "", "Search term")
	cmd.Flags().StringVar(&p.Category, "category", "", "Category filter")
	cmd.Flags().StringVar(&p.Character, "character", "", "Character filter")
	cmd.Flags().StringVar(&sortKey, "sort", string(query.SortNewest), "Sort: newest, oldest, name, size")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, conn, done, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			catalog := service.NewCatalogStore(conn.client.Documents, 0, c.logger)
			if _, err := catalog.Refresh(ctx); err != nil {
				return err
			}
			it, ok := catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", service.ErrNotFound, args[0])
			}
			d := view.DetailOf(it)
			return c.print(d, func(w io.Writer) error { return writeDetail(w, d) })
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, conn, done, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			catalog := service.NewCatalogStore(conn.client.Documents, 0, c.logger)
			if _, err := catalog.Refresh(ctx); err != nil {
				return err
			}
			s := statsResult{
				Items:       catalog.Count(),
				ItemsLabel:  view.CountLabel(catalog.Count()),
				TotalBytes:  catalog.TotalBytes(),
				StorageUsed: view.FormatFileSize(catalog.TotalBytes()),
				Categories:  view.CategoryStats(catalog.CategoryCounts()),
			}
			return c.print(s, func(w io.Writer) error { return writeStats(w, s) })
		},
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	var (
		form                 model.ItemForm
		tags                 string
		previewPath, payload string
		email, password      string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a new catalog item",
		Long: `Upload a new catalog item as an administrator.

The preview image (PNG or JPEG) and the download file are validated
before anything is sent. Progress is printed as each step completes.
Credentials default to MS_ADMIN_EMAIL and MS_ADMIN_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.Tags = model.ParseTags(tags)
			preview, err := readUpload(previewPath)
			if err != nil {
				return err
			}
			file, err := readUpload(payload)
			if err != nil {
				return err
			}

			ctx, conn, done, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer done()

			guard := service.NewGuard(conn.client.Auth, c.logger)
			guard.OnChange(func(s *backend.Session) {
				if s == nil {
					c.logger.Debug("Сессия администратора закрыта")
					return
				}
				c.logger.Debug("Сессия администратора открыта", slog.String("email", s.Email))
			})
			if _, err := guard.SignIn(ctx, email, password); err != nil {
				return err
			}
			defer func() { _ = guard.SignOut(ctx) }()

			// Токен проверяется бэкендом до первой записи
			if err := guard.Check(ctx); err != nil {
				return err
			}

			catalog := service.NewCatalogStore(conn.client.Documents, 0, c.logger)
			workflow := service.NewUploadWorkflow(conn.client, catalog, conn.limits, c.logger)
			task, err := workflow.Start(ctx, guard, form, preview, file)
			if err != nil {
				return err
			}

			f, _ := parseFormat(c.output)
			for p := range task.Events() {
				if f == formatText {
					fmt.Fprintf(c.out, "[%3d%%] %s\n", p.Percent, p.Message)
				}
			}
			item, err := task.Wait(ctx)
			if err != nil {
				return err
			}
			d := view.DetailOf(item)
			return c.print(d, func(w io.Writer) error { return writeDetail(w, d) })
		},
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "Item title (required)")
	cmd.Flags().StringVar(&form.Category, "category", "", "Category (required)")
	cmd.Flags().StringVar(&form.Character, "character", "", "Character")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&form.Description, "description", "", "Description")
	cmd.Flags().StringVar(&previewPath, "preview", "", "Preview image path (required)")
	cmd.Flags().StringVar(&payload, "file", "", "Download file path (required)")
	cmd.Flags().StringVar(&email, "email", os.Getenv("MS_ADMIN_EMAIL"), "Administrator email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("MS_ADMIN_PASSWORD"), "Administrator password")
	return cmd
}

// print выводит результат в выбранном формате.
func (c *cli) print(v any, text func(io.Writer) error) error {
	f, err := parseFormat(c.output)
	if err != nil {
		return err
	}
	return encode(c.out, f, v, text)
}

func listResultOf(items []model.ItemRecord) listResult {
	return listResult{
		Items:      view.Cards(items),
		Total:      len(items),
		CountLabel: view.CountLabel(len(items)),
	}
}

// readUpload читает файл для загрузки. Пустой путь — nil (обнаружит валидация).
func readUpload(path string) (*service.FileUpload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("файл не найден: %s", path)
		}
		return nil, err
	}
	return &service.FileUpload{Name: filepath.Base(path), Data: data}, nil
}
