// Package format renders conversation replies for chat surfaces.
//
// Replies are plain text with a few structural lines (titles, the method
// header, the question counter). Surfaces that support markup get those lines
// emphasised; everything else, including echoed user text, is escaped.
package format

import (
	"regexp"
	"strings"
)

var (
	// [방법론: 5 WHYS - ANALYTICAL]
	methodHeaderRegex = regexp.MustCompile(`(?m)^\[방법론: (.+)\]$`)
	// 질문 2/5: ...
	questionRegex = regexp.MustCompile(`(?m)^질문 (\d+/\d+):`)
	// 1. SWOT Analysis
	menuItemRegex = regexp.MustCompile(`(?m)^(\d+)\. (.+)$`)
	// 🎯 문제 분석 완료, ✅ 세션 완료, ...
	titleRegex = regexp.MustCompile(`(?m)^(🎯|✅|⏹|🔍|✨|🔄|🗂|🤔) (.+)$`)
	// 📌 문제: ...
	fieldRegex = regexp.MustCompile(`(?m)^(📌|🔧|📊|💡|📂) ([^:\n]+):`)
	// /think, /method:swot, /1
	commandRegex = regexp.MustCompile(`(^|\s)(/[a-z]+(?::[a-z_\[\]가-힣]+)?|/\d+|/\{번호\})`)
)

// ToTelegramHTML renders a reply as Telegram HTML
func ToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	text = EscapeHTML(text)
	text = methodHeaderRegex.ReplaceAllString(text, "<b>[$1]</b>")
	text = questionRegex.ReplaceAllString(text, "<b>질문 $1</b>:")
	text = titleRegex.ReplaceAllString(text, "$1 <b>$2</b>")
	text = fieldRegex.ReplaceAllString(text, "$1 <b>$2</b>:")
	text = commandRegex.ReplaceAllString(text, "$1<code>$2</code>")
	return text
}

// ToDiscordMarkdown renders a reply as Discord markdown
func ToDiscordMarkdown(text string) string {
	if text == "" {
		return ""
	}

	text = EscapeMarkdown(text)
	text = methodHeaderRegex.ReplaceAllString(text, "**[$1]**")
	text = questionRegex.ReplaceAllString(text, "**질문 $1**:")
	text = titleRegex.ReplaceAllString(text, "$1 **$2**")
	text = fieldRegex.ReplaceAllString(text, "$1 **$2**:")
	text = menuItemRegex.ReplaceAllString(text, "**$1.** $2")
	return text
}

// EscapeHTML escapes HTML special characters
func EscapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

// EscapeMarkdown escapes Discord markdown control characters
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// Truncate shortens text to at most limit runes, marking the cut
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
