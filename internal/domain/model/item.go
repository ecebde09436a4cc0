// Пакет model — доменные модели каталога модов.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ItemRecord — запись каталога (мод): метаданные, превью и файл для скачивания.
// Временные метки — Unix-время в миллисекундах, выставляются записывающей стороной.
type ItemRecord struct {
	// ID — непрозрачный идентификатор, назначается бэкендом при создании.
	ID string `json:"id" yaml:"id"`
	// Title — название, непустое.
	Title string `json:"title" yaml:"title"`
	// Category — одна из категорий Categories.
	Category string `json:"category" yaml:"category"`
	// Character — персонаж (nil если не задан).
	Character *string `json:"character" yaml:"character"`
	// Tags — теги в порядке ввода.
	Tags []string `json:"tags" yaml:"tags"`
	// Description — описание (nil если не задано).
	Description *string `json:"description" yaml:"description"`
	// PreviewURL — URL изображения превью.
	PreviewURL string `json:"previewUrl" yaml:"previewUrl"`
	// DownloadURL — URL файла для скачивания.
	DownloadURL string `json:"downloadUrl" yaml:"downloadUrl"`
	// FileSize — размер файла в байтах.
	FileSize int64 `json:"fileSize" yaml:"fileSize"`
	// FileName — исходное имя загруженного файла.
	FileName string `json:"fileName" yaml:"fileName"`
	// CreatedAt — время создания (мс).
	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
	// UpdatedAt — время последнего изменения (мс).
	UpdatedAt int64 `json:"updatedAt" yaml:"updatedAt"`
}

// CharacterValue возвращает персонажа или пустую строку.
func (r *ItemRecord) CharacterValue() string {
	if r.Character == nil {
		return ""
	}
	return *r.Character
}

// DescriptionValue возвращает описание или пустую строку.
func (r *ItemRecord) DescriptionValue() string {
	if r.Description == nil {
		return ""
	}
	return *r.Description
}

// Ошибки инвариантов записи.
var (
	ErrEmptyTitle      = errors.New("пустое название")
	ErrUnknownCategory = errors.New("неизвестная категория")
	ErrTimestampOrder  = errors.New("createdAt больше updatedAt")
	ErrMissingFileSize = errors.New("запись с downloadUrl без размера файла")
)

// Validate проверяет инварианты записи, не зависящие от остального каталога.
func (r *ItemRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if !IsCategory(r.Category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, r.Category)
	}
	if r.CreatedAt > r.UpdatedAt {
		return ErrTimestampOrder
	}
	if r.DownloadURL != "" && r.FileSize <= 0 {
		return ErrMissingFileSize
	}
	return nil
}

// ItemPatch — изменение разрешённых полей записи.
// previewUrl, downloadUrl, fileSize, fileName, createdAt и id не изменяются.
type ItemPatch struct {
	Title       string
	Category    string
	Character   *string
	Tags        []string
	Description *string
	UpdatedAt   int64
}

// Apply возвращает копию записи с применённым изменением.
func (p ItemPatch) Apply(r ItemRecord) ItemRecord {
	r.Title = p.Title
	r.Category = p.Category
	r.Character = p.Character
	r.Tags = append([]string(nil), p.Tags...)
	r.Description = p.Description
	r.UpdatedAt = p.UpdatedAt
	return r
}

// ItemForm — поля формы добавления и редактирования записи.
type ItemForm struct {
	Title       string
	Category    string
	Character   string
	Tags        []string
	Description string
}

// Normalize обрезает пробелы и убирает пустые теги.
func (f ItemForm) Normalize() ItemForm {
	f.Title = strings.TrimSpace(f.Title)
	f.Category = strings.TrimSpace(f.Category)
	f.Character = strings.TrimSpace(f.Character)
	f.Description = strings.TrimSpace(f.Description)
	tags := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	f.Tags = tags
	return f
}

// CharacterPtr возвращает персонажа формы или nil для пустого значения.
func (f ItemForm) CharacterPtr() *string {
	return optional(f.Character)
}

// DescriptionPtr возвращает описание формы или nil для пустого значения.
func (f ItemForm) DescriptionPtr() *string {
	return optional(f.Description)
}

// Patch строит ItemPatch из формы.
func (f ItemForm) Patch(updatedAt int64) ItemPatch {
	return ItemPatch{
		Title:       f.Title,
		Category:    f.Category,
		Character:   f.CharacterPtr(),
		Tags:        f.Tags,
		Description: f.DescriptionPtr(),
		UpdatedAt:   updatedAt,
	}
}

// ParseTags разбирает теги, введённые через запятую.
// Пробелы обрезаются, пустые элементы отбрасываются, порядок сохраняется.
func ParseTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
