// catalog.go — перечисления и константы каталога.
package model

import "strings"

// Category — категория с подписью для отображения.
type Category struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Categories — фиксированный набор категорий в порядке отображения.
var Categories = []Category{
	{Value: "texture", Label: "Textures"},
	{Value: "file", Label: "Files"},
	{Value: "zip", Label: "ZIP Archives"},
	{Value: "weapon", Label: "Weapons"},
	{Value: "armor", Label: "Armor"},
	{Value: "character", Label: "Characters"},
}

// Characters — известные персонажи.
var Characters = []string{
	"shadow", "hermit", "butcher", "wasp", "lynx", "titan", "shogun",
}

// Лимиты и константы каталога.
const (
	// PreviewMaxBytes — максимальный размер превью (2 MiB).
	PreviewMaxBytes int64 = 2 * 1024 * 1024
	// PayloadMaxBytes — максимальный размер файла (5 MiB).
	PayloadMaxBytes int64 = 5 * 1024 * 1024
	// ItemsPerPage — размер страницы. Пагинации нет, список загружается целиком.
	ItemsPerPage = 12
	// RecentItemsLimit — количество последних записей на dashboard.
	RecentItemsLimit = 5
)

// Каталоги blob-хранилища.
const (
	PreviewsFolder = "previews"
	FilesFolder    = "files"
)

// Изображения-заглушки.
const (
	PlaceholderCard         = "https://via.placeholder.com/300x300?text=No+Image"
	PlaceholderCardBroken   = "https://via.placeholder.com/300x300?text=Image+Not+Found"
	PlaceholderDetail       = "https://via.placeholder.com/600x400?text=No+Image"
	PlaceholderDetailBroken = "https://via.placeholder.com/600x400?text=Image+Not+Found"
	PlaceholderRecent       = "https://via.placeholder.com/60"
	PlaceholderManage       = "https://via.placeholder.com/100"
)

// Допустимые типы превью.
var PreviewContentTypes = []string{"image/png", "image/jpeg"}

// IsCategory проверяет, входит ли значение в набор категорий (без учёта регистра).
func IsCategory(v string) bool {
	for _, c := range Categories {
		if strings.EqualFold(c.Value, v) {
			return true
		}
	}
	return false
}

// IsCharacter проверяет, известен ли персонаж (без учёта регистра).
func IsCharacter(v string) bool {
	for _, c := range Characters {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}

// CategoryLabel возвращает подпись категории или само значение, если категория неизвестна.
func CategoryLabel(v string) string {
	for _, c := range Categories {
		if strings.EqualFold(c.Value, v) {
			return c.Label
		}
	}
	return v
}
