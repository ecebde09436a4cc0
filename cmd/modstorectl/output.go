// output.go — вывод результатов в text, json или yaml.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/view"
)

// format — формат вывода.
type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	}
	return "", fmt.Errorf("неизвестный формат вывода %q, допустимые: text, json, yaml", s)
}

// encode выводит v в json или yaml. Для text вызывается text.
func encode(w io.Writer, f format, v any, text func(io.Writer) error) error {
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

// listResult — результат list и browse.
type listResult struct {
	Items      []view.Card `json:"items" yaml:"items"`
	Total      int         `json:"total" yaml:"total"`
	CountLabel string      `json:"countLabel" yaml:"countLabel"`
}

func writeCards(w io.Writer, r listResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tCHARACTER\tSIZE\tTAGS")
	for _, c := range r.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Title, c.Category, dash(c.Character), c.FileSize, dash(strings.Join(c.Tags, ", ")))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s items\n", r.CountLabel)
	return err
}

func writeDetail(w io.Writer, d view.Detail) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"ID", d.ID},
		{"Title", d.Title},
		{"Category", d.Category},
		{"Character", dash(d.Character)},
		{"Tags", dash(strings.Join(d.Tags, ", "))},
		{"Description", dash(d.Description)},
		{"File", d.FileName + " (" + d.FileSize + ")"},
		{"Created", d.CreatedDate},
		{"Preview", d.ImageURL},
		{"Download", dash(d.DownloadURL)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

// statsResult — результат stats.
type statsResult struct {
	Items       int                 `json:"items" yaml:"items"`
	ItemsLabel  string              `json:"itemsLabel" yaml:"itemsLabel"`
	TotalBytes  int64               `json:"totalBytes" yaml:"totalBytes"`
	StorageUsed string              `json:"storageUsed" yaml:"storageUsed"`
	Categories  []view.CategoryStat `json:"categories" yaml:"categories"`
}

func writeStats(w io.Writer, s statsResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Items:\t%s\n", s.ItemsLabel)
	fmt.Fprintf(tw, "Storage used:\t%s\n", s.StorageUsed)
	for _, c := range s.Categories {
		fmt.Fprintf(tw, "  %s:\t%s\n", c.Label, c.Text)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
