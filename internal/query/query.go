// Пакет query — фильтрация, поиск и сортировка каталога.
// Все функции чистые: входной срез не изменяется, результат пересчитывается целиком.
package query

import (
	"strings"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// Params — параметры выборки.
type Params struct {
	Search    string  `json:"search" yaml:"search"`
	Category  string  `json:"category" yaml:"category"`
	Character string  `json:"character" yaml:"character"`
	Sort      SortKey `json:"sort" yaml:"sort"`
}

// Reset возвращает параметры по умолчанию: без фильтров, сортировка newest.
func Reset() Params {
	return Params{Sort: SortNewest}
}

// Normalize обрезает пробелы и подставляет сортировку по умолчанию.
func (p Params) Normalize() Params {
	p.Search = strings.TrimSpace(p.Search)
	p.Category = strings.TrimSpace(p.Category)
	p.Character = strings.TrimSpace(p.Character)
	if p.Sort == "" {
		p.Sort = SortNewest
	}
	return p
}

// IsZero сообщает, что фильтры не заданы.
func (p Params) IsZero() bool {
	p = p.Normalize()
	return p.Search == "" && p.Category == "" && p.Character == ""
}

// Run фильтрует и сортирует записи.
func Run(items []model.ItemRecord, p Params) []model.ItemRecord {
	p = p.Normalize()
	return Sort(Filter(items, p.Search, p.Category, p.Character), p.Sort)
}

// Filter оставляет записи, удовлетворяющие всем заданным условиям.
// Пустое условие считается выполненным.
func Filter(items []model.ItemRecord, search, category, character string) []model.ItemRecord {
	search = strings.ToLower(strings.TrimSpace(search))
	category = strings.TrimSpace(category)
	character = strings.TrimSpace(character)

	out := make([]model.ItemRecord, 0, len(items))
	for _, it := range items {
		if !MatchesSearch(it, search) {
			continue
		}
		if category != "" && !strings.EqualFold(it.Category, category) {
			continue
		}
		if character != "" && (it.Character == nil || !strings.EqualFold(*it.Character, character)) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// MatchesSearch проверяет вхождение term (без учёта регистра) в название,
// описание или один из тегов. Пустой term подходит любой записи.
func MatchesSearch(it model.ItemRecord, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if contains(it.Title, term) {
		return true
	}
	if it.Description != nil && contains(*it.Description, term) {
		return true
	}
	for _, tag := range it.Tags {
		if contains(tag, term) {
			return true
		}
	}
	return false
}

// ManageSearch — поиск в административном списке: название, категория,
// персонаж или теги. Пустой term возвращает все записи.
func ManageSearch(items []model.ItemRecord, term string) []model.ItemRecord {
	term = strings.ToLower(strings.TrimSpace(term))

	out := make([]model.ItemRecord, 0, len(items))
	for _, it := range items {
		if term == "" || contains(it.Title, term) || contains(it.Category, term) ||
			(it.Character != nil && contains(*it.Character, term)) || anyContains(it.Tags, term) {
			out = append(out, it)
		}
	}
	return out
}

// contains — поиск подстроки без учёта регистра, term уже в нижнем регистре.
func contains(s, term string) bool {
	return strings.Contains(strings.ToLower(s), term)
}

func anyContains(values []string, term string) bool {
	for _, v := range values {
		if contains(v, term) {
			return true
		}
	}
	return false
}
