package service

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Escape makes s safe to place outside an entity in a Markdown reply.
func Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// Bold wraps s in a bold entity.
func Bold(s string) string {
	return entity("*", s)
}

// Italic wraps s in an italic entity.
func Italic(s string) string {
	return entity("_", s)
}

// entity wraps s in delim. Legacy Markdown cannot escape inside an entity,
// so each delim in s closes the entity, is escaped, and reopens it.
func entity(delim, s string) string {
	if s == "" {
		return ""
	}
	return delim + strings.ReplaceAll(s, delim, delim+`\`+delim+delim) + delim
}
