package telegram

import (
	"strings"
	"unicode"
)

// ParseCommand разбирает "/cmd@bot аргументы". Для обычного текста cmd пустой, args - весь текст.
// Аргументы возвращаются как есть (без схлопывания пробелов): /batch читает их построчно.
func ParseCommand(text string) (cmd string, args string) {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, "/") {
		return "", text
	}

	head := trimmed
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i >= 0 {
		head = trimmed[:i]
		args = trimmed[i+1:]
	}

	cmd = strings.ToLower(strings.TrimPrefix(head, "/"))
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd, args
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
