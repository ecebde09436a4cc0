// sort.go — стабильная сортировка выборки.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// SortKey — ключ сортировки.
type SortKey string

const (
	// SortNewest — по createdAt, сначала новые.
	SortNewest SortKey = "newest"
	// SortOldest — по createdAt, сначала старые.
	SortOldest SortKey = "oldest"
	// SortName — по названию с учётом правил сравнения языка.
	SortName SortKey = "name"
	// SortSize — по размеру файла, по возрастанию.
	SortSize SortKey = "size"
)

// SortKeys — допустимые ключи в порядке отображения.
var SortKeys = []SortKey{SortNewest, SortOldest, SortName, SortSize}

// ParseSortKey разбирает ключ сортировки. Пустая строка — newest.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortNewest, nil
	}
	key := SortKey(s)
	if !slices.Contains(SortKeys, key) {
		return "", fmt.Errorf("недопустимый ключ сортировки %q, допустимые: newest, oldest, name, size", s)
	}
	return key, nil
}

// Sort возвращает отсортированную копию view. Сортировка стабильна:
// при равенстве ключей сохраняется исходный порядок.
// Неизвестный ключ оставляет порядок без изменений.
func Sort(view []model.ItemRecord, key SortKey) []model.ItemRecord {
	out := slices.Clone(view)

	switch key {
	case SortNewest:
		slices.SortStableFunc(out, func(a, b model.ItemRecord) int {
			return cmp.Compare(b.CreatedAt, a.CreatedAt)
		})
	case SortOldest:
		slices.SortStableFunc(out, func(a, b model.ItemRecord) int {
			return cmp.Compare(a.CreatedAt, b.CreatedAt)
		})
	case SortName:
		// Collator хранит внутренние буферы, поэтому создаётся на каждый вызов
		c := collate.New(language.Und)
		slices.SortStableFunc(out, func(a, b model.ItemRecord) int {
			return c.CompareString(a.Title, b.Title)
		})
	case SortSize:
		slices.SortStableFunc(out, func(a, b model.ItemRecord) int {
			return cmp.Compare(a.FileSize, b.FileSize)
		})
	}
	return out
}
