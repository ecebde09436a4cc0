// admin.go — модели отображения административной панели.
package view

import (
	"strconv"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// RecentRow — строка списка последних записей.
type RecentRow struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	// Summary — "категория • размер".
	Summary string `json:"summary"`
}

// CategoryStat — количество записей категории.
type CategoryStat struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
	// Text — "N items".
	Text string `json:"text"`
}

// Dashboard — сводка административной панели.
type Dashboard struct {
	TotalItems  int            `json:"totalItems"`
	StorageUsed string         `json:"storageUsed"`
	TotalBytes  int64          `json:"totalBytes"`
	Recent      []RecentRow    `json:"recent"`
	Categories  []CategoryStat `json:"categories"`
	// EmptyMessage — текст для пустого списка последних записей.
	EmptyMessage string `json:"emptyMessage,omitempty"`
}

// ManageRow — строка административного списка.
type ManageRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Character   string `json:"character,omitempty"`
	ImageURL    string `json:"imageUrl"`
	FileSize    string `json:"fileSize"`
	CreatedDate string `json:"createdDate"`
}

// BuildDashboard собирает сводку из агрегатов каталога.
func BuildDashboard(count int, totalBytes int64, recent []model.ItemRecord, categoryCounts map[string]int) Dashboard {
	d := Dashboard{
		TotalItems:  count,
		StorageUsed: FormatFileSize(totalBytes),
		TotalBytes:  totalBytes,
		Recent:      RecentRows(recent),
		Categories:  CategoryStats(categoryCounts),
	}
	if len(d.Recent) == 0 {
		d.EmptyMessage = "No items uploaded yet"
	}
	return d
}

// RecentRows проецирует последние записи.
func RecentRows(items []model.ItemRecord) []RecentRow {
	rows := make([]RecentRow, len(items))
	for i, it := range items {
		rows[i] = RecentRow{
			ID:       it.ID,
			Title:    it.Title,
			ImageURL: imageOr(it.PreviewURL, model.PlaceholderRecent),
			Summary:  it.Category + " • " + FormatFileSize(it.FileSize),
		}
	}
	return rows
}

// CategoryStats возвращает статистику по всем категориям в порядке отображения.
func CategoryStats(counts map[string]int) []CategoryStat {
	stats := make([]CategoryStat, len(model.Categories))
	for i, c := range model.Categories {
		n := counts[c.Value]
		stats[i] = CategoryStat{
			Value: c.Value,
			Label: c.Label,
			Count: n,
			Text:  strconv.Itoa(n) + " items",
		}
	}
	return stats
}

// ManageRows проецирует записи административного списка.
func ManageRows(items []model.ItemRecord) []ManageRow {
	rows := make([]ManageRow, len(items))
	for i, it := range items {
		rows[i] = ManageRow{
			ID:          it.ID,
			Title:       it.Title,
			Category:    it.Category,
			Character:   CapitalizeFirst(it.CharacterValue()),
			ImageURL:    imageOr(it.PreviewURL, model.PlaceholderManage),
			FileSize:    FormatFileSize(it.FileSize),
			CreatedDate: FormatDate(it.CreatedAt),
		}
	}
	return rows
}
