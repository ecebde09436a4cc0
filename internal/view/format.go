// format.go — форматирование значений для отображения.
package view

import (
	"math"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize форматирует размер в байтах: основание 1024,
// не более двух знаков после запятой ("1.5 MB", "0 Bytes").
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := 0
	for b := bytes; b >= 1024 && i < len(sizeUnits)-1; b /= 1024 {
		i++
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// CapitalizeFirst переводит первую букву в верхний регистр.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// FormatDate форматирует время в миллисекундах как дату (UTC).
// Отсутствующее время — "N/A".
func FormatDate(ms int64) string {
	if ms <= 0 {
		return "N/A"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}
