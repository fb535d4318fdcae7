// Package filter вырезает из текста хештеги и упоминания по настройкам канала.
package filter

import (
	"regexp"

	"tgdigest_go/models"
)

var (
	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	mentionRe = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
)

// Apply удаляет хештеги, если IncludeHashtags выключен, затем упоминания,
// если выключен IncludeUserMentions. Окружающие пробелы и переводы строк сохраняются.
func Apply(text string, ch models.Channel) string {
	if !ch.IncludeHashtags {
		text = hashtagRe.ReplaceAllString(text, "")
	}
	if !ch.IncludeUserMentions {
		text = mentionRe.ReplaceAllString(text, "")
	}
	return text
}
