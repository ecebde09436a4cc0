// Пакет view — чистая проекция записей каталога в модели отображения.
// Не зависит от конкретного вывода (HTML, терминал, JSON).
package view

import (
	"strconv"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/domain/model"
)

// SummaryTagLimit — максимум тегов в карточке.
const SummaryTagLimit = 3

// Card — карточка записи в списке.
type Card struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Category string `json:"category" yaml:"category"`
	// Character — персонаж с заглавной буквы, пусто если не задан.
	Character string `json:"character,omitempty" yaml:"character,omitempty"`
	// ImageURL — превью или заглушка.
	ImageURL string `json:"imageUrl" yaml:"imageUrl"`
	// FallbackImageURL — изображение при ошибке загрузки ImageURL.
	FallbackImageURL string   `json:"fallbackImageUrl" yaml:"fallbackImageUrl"`
	Tags             []string `json:"tags" yaml:"tags"`
	FileSize         string   `json:"fileSize" yaml:"fileSize"`
	DownloadURL      string   `json:"downloadUrl,omitempty" yaml:"downloadUrl,omitempty"`
}

// Detail — полное представление записи.
type Detail struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	Category         string   `json:"category" yaml:"category"`
	Character        string   `json:"character,omitempty" yaml:"character,omitempty"`
	ImageURL         string   `json:"imageUrl" yaml:"imageUrl"`
	FallbackImageURL string   `json:"fallbackImageUrl" yaml:"fallbackImageUrl"`
	Tags             []string `json:"tags" yaml:"tags"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	FileSize         string   `json:"fileSize" yaml:"fileSize"`
	FileName         string   `json:"fileName" yaml:"fileName"`
	CreatedDate      string   `json:"createdDate" yaml:"createdDate"`
	DownloadURL      string   `json:"downloadUrl,omitempty" yaml:"downloadUrl,omitempty"`
	// DownloadName — имя файла для сохранения (название записи).
	DownloadName string `json:"downloadName" yaml:"downloadName"`
}

// Cards проецирует выборку в карточки, порядок сохраняется.
func Cards(items []model.ItemRecord) []Card {
	cards := make([]Card, len(items))
	for i, it := range items {
		cards[i] = CardOf(it)
	}
	return cards
}

// CardOf строит карточку: не более SummaryTagLimit тегов, заглушка без превью.
func CardOf(it model.ItemRecord) Card {
	tags := it.Tags
	if len(tags) > SummaryTagLimit {
		tags = tags[:SummaryTagLimit]
	}
	return Card{
		ID:               it.ID,
		Title:            it.Title,
		Category:         it.Category,
		Character:        CapitalizeFirst(it.CharacterValue()),
		ImageURL:         imageOr(it.PreviewURL, model.PlaceholderCard),
		FallbackImageURL: model.PlaceholderCardBroken,
		Tags:             append([]string{}, tags...),
		FileSize:         FormatFileSize(it.FileSize),
		DownloadURL:      it.DownloadURL,
	}
}

// DetailOf строит полное представление записи со всеми тегами.
func DetailOf(it model.ItemRecord) Detail {
	return Detail{
		ID:               it.ID,
		Title:            it.Title,
		Category:         it.Category,
		Character:        CapitalizeFirst(it.CharacterValue()),
		ImageURL:         imageOr(it.PreviewURL, model.PlaceholderDetail),
		FallbackImageURL: model.PlaceholderDetailBroken,
		Tags:             append([]string{}, it.Tags...),
		Description:      it.DescriptionValue(),
		FileSize:         FormatFileSize(it.FileSize),
		FileName:         it.FileName,
		CreatedDate:      FormatDate(it.CreatedAt),
		DownloadURL:      it.DownloadURL,
		DownloadName:     downloadName(it),
	}
}

// CountLabel — подпись количества записей на витрине ("12+").
func CountLabel(n int) string {
	return strconv.Itoa(n) + "+"
}

func imageOr(url, placeholder string) string {
	if url == "" {
		return placeholder
	}
	return url
}

func downloadName(it model.ItemRecord) string {
	if it.Title != "" {
		return it.Title
	}
	return "download"
}
