// browse.go — интерактивный поиск по каталогу.
// Команды читаются построчно из stdin. Изменение поиска пересчитывает выборку
// после окна debounce, фильтры и сортировка применяются сразу.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/query"
	"github.com/SHIV-31-60/Sf2-modded-store/internal/service"
)

const browseHelp = `Commands:
  search <term>      set the search term (debounced)
  category <value>   filter by category (empty clears)
  character <value>  filter by character (empty clears)
  sort <key>         newest, oldest, name, size
  reset              clear all filters
  quit               exit`

func (c *cli) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactive catalog search over stdin",
		Long:  "Interactive catalog search. Reads one command per line from stdin.\n\n" + browseHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			b := &browser{cli: c, items: items, params: query.Reset(), debounce: query.NewDebouncer(conn.debounce)}
			return b.run(c.in)
		},
	}
}

// browser — состояние интерактивного поиска.
type browser struct {
	*cli
	items    []model.ItemRecord
	params   query.Params
	debounce *query.Debouncer

	// outMu сериализует вывод: render вызывается и из таймера debounce
	outMu sync.Mutex
}

func (b *browser) run(in io.Reader) error {
	defer b.debounce.Stop()

	b.render(b.params)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(verb) {
		case "search":
			b.params.Search = arg
			b.schedule(false)
		case "category":
			if arg != "" && !model.IsCategory(arg) {
				b.printf("unknown category %q\n", arg)
				continue
			}
			b.params.Category = arg
			b.schedule(true)
		case "character":
			b.params.Character = arg
			b.schedule(true)
		case "sort":
			key, err := query.ParseSortKey(arg)
			if err != nil {
				b.printf("%v\n", err)
				continue
			}
			b.params.Sort = key
			b.schedule(true)
		case "reset", "clear":
			b.params = query.Reset()
			b.schedule(true)
		case "quit", "exit":
			b.debounce.Flush()
			return nil
		case "help":
			b.printf("%s\n", browseHelp)
		default:
			b.printf("unknown command %q, type help\n", verb)
		}
	}
	b.debounce.Flush()
	return sc.Err()
}

// schedule откладывает пересчёт; immediate выполняет его сразу
// вместе с ожидающим пересчётом поиска.
func (b *browser) schedule(immediate bool) {
	p := b.params
	b.debounce.Trigger(func() { b.render(p) })
	if immediate {
		b.debounce.Flush()
	}
}

func (b *browser) render(p query.Params) {
	res := listResultOf(query.Run(b.items, p))

	b.outMu.Lock()
	defer b.outMu.Unlock()
	fmt.Fprintf(b.out, "> search=%q category=%q character=%q sort=%s\n", p.Search, p.Category, p.Character, p.Normalize().Sort)
	err := b.print(res, func(w io.Writer) error {
		if err := writeCards(w, res); err != nil || res.Total > 0 {
			return err
		}
		_, err := fmt.Fprintln(w, emptyHint(p))
		return err
	})
	if err != nil {
		b.logger.Warn("Ошибка вывода", slog.String("error", err.Error()))
	}
}

// emptyHint — подсказка для пустой выборки.
func emptyHint(p query.Params) string {
	if p.IsZero() {
		return "The catalog is empty."
	}
	return "No items match the current filters. Type reset to clear them."
}

func (b *browser) printf(format string, args ...any) {
	b.outMu.Lock()
	defer b.outMu.Unlock()
	fmt.Fprintf(b.out, format, args...)
}
