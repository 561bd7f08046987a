package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits, in runes.
const (
	maxTitleLen  = 120
	maxEmailLen  = 254
	maxAnswerLen = 200
	maxTextLen   = 2000
	maxPathLen   = 4096
)

// editRune applies one keystroke to a single-line field holding at most
// limit runes. backspace drops the last rune, ctrl+w the last word and
// ctrl+u the whole line. A printable key is appended; anything else
// leaves text unchanged.
func editRune(text, key string, limit int) string {
	switch key {
	case "backspace":
		_, size := utf8.DecodeLastRuneInString(text)
		return text[:len(text)-size]
	case "ctrl+w":
		return dropWord(text)
	case "ctrl+u":
		return ""
	case "space":
		key = " "
	}
	if key == "" {
		return text
	}
	r, size := utf8.DecodeRuneInString(key)
	if size != len(key) || !unicode.IsPrint(r) {
		return text
	}
	if utf8.RuneCountInString(text) >= limit {
		return text
	}
	return text + key
}

func dropWord(text string) string {
	t := strings.TrimRightFunc(text, unicode.IsSpace)
	return t[:strings.LastIndexFunc(t, unicode.IsSpace)+1]
}

// renderInput renders a one-line prompt with a blinking cursor.
func renderInput(prompt, input, placeholder string, frame int) string {
	cursor := " "
	if (frame/4)%2 == 0 {
		cursor = accentStyle.Render("█")
	}
	if input == "" {
		return inputPromptStyle.Render(prompt) + cursor + inputPlaceholderStyle.Render(placeholder)
	}
	return inputPromptStyle.Render(prompt) + normalStyle.Render(input) + cursor
}
