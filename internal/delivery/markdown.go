package delivery

import (
	"strings"

	"instagram-comment-scraper/pkg/types"
)

// MaxMessageLength is the Telegram limit for a single text message.
const MaxMessageLength = 4096

const (
	commentPrefix   = "💬 "
	markdownSpecial = "_*`[]()"
)

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
)

// EscapeMarkdown backslash-escapes the characters legacy Telegram Markdown
// treats as markup. It must be applied once per text.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// FormatComments renders one escaped line per comment.
func FormatComments(doc *types.CommentDocument) string {
	edges := doc.Edges()
	lines := make([]string, 0, len(edges))
	for _, edge := range edges {
		lines = append(lines, commentPrefix+EscapeMarkdown(edge.Node.Text))
	}
	return strings.Join(lines, "\n")
}

// Chunk splits text into pieces of at most limit characters whose
// concatenation is text. A piece never ends between a backslash and the
// character it escapes.
func Chunk(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit < 2 {
		limit = 2
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + limit
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		if runes[end-1] == '\\' && strings.ContainsRune(markdownSpecial, runes[end]) {
			end--
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end
	}
	return chunks
}

// Messages formats doc and splits it for transport.
func Messages(doc *types.CommentDocument) []string {
	return Chunk(FormatComments(doc), MaxMessageLength)
}
