package presenter

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultTypingPerRune = 15 * time.Millisecond
	DefaultTypingMin     = 1000 * time.Millisecond
	DefaultTypingMax     = 3000 * time.Millisecond
)

var (
	listItemRe       = regexp.MustCompile(`^[-*] (.*)$`)
	// las negritas no cruzan lineas ni tags
	boldDoubleRe     = regexp.MustCompile(`\*\*([^*<\n]+?)\*\*`)
	boldSingleRe     = regexp.MustCompile(`\*([^*<\n]+?)\*`)
	headerRe         = regexp.MustCompile(`^(.+?):\s*$`)
	paragraphBreakRe = regexp.MustCompile(`\n{2,}`)
	tagRe            = regexp.MustCompile(`<[^>]*>`)
)

// Format convierte el texto del coach en markup: negritas, listas, encabezados terminados en
// dos puntos y parrafos. Es idempotente: Format(Format(s)) == Format(s).
func Format(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = listItemRe.ReplaceAllString(line, "<li>$1</li>")
	}
	content = strings.Join(lines, "\n")

	content = boldDoubleRe.ReplaceAllString(content, "<strong>$1</strong>")
	content = boldSingleRe.ReplaceAllString(content, "<strong>$1</strong>")

	lines = wrapLists(strings.Split(content, "\n"))
	for i, line := range lines {
		lines[i] = headerRe.ReplaceAllString(line, `<h4 class="font-semibold mt-2">$1:</h4>`)
	}
	content = strings.Join(lines, "\n")

	return paragraphBreakRe.ReplaceAllString(content, "</p><p>")
}

// wrapLists envuelve cada corrida de lineas <li> en un unico <ul>, salvo que ya este envuelta.
func wrapLists(lines []string) []string {
	out := make([]string, 0, len(lines)+2)
	for i := 0; i < len(lines); {
		if !strings.HasPrefix(lines[i], "<li>") {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && strings.HasPrefix(lines[j], "<li>") {
			j++
		}
		wrapped := len(out) > 0 && strings.HasSuffix(out[len(out)-1], "<ul>")
		if !wrapped {
			out = append(out, "<ul>")
		}
		out = append(out, lines[i:j]...)
		if !wrapped {
			out = append(out, "</ul>")
		}
		i = j
	}
	return out
}

// PlainTextLength cuenta los caracteres visibles, sin tags.
func PlainTextLength(content string) int {
	return utf8.RuneCountInString(tagRe.ReplaceAllString(content, ""))
}

// TypingDelay calcula la duracion de la simulacion de escritura con los valores por defecto.
func TypingDelay(content string) time.Duration {
	return typingDelay(content, DefaultTypingPerRune, DefaultTypingMin, DefaultTypingMax)
}

func typingDelay(content string, perRune, minDelay, maxDelay time.Duration) time.Duration {
	d := time.Duration(PlainTextLength(content)) * perRune
	if d < minDelay {
		return minDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}
