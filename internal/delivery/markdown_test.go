package delivery

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-comment-scraper/pkg/types"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Nice!", "Nice!"},
		{"underscore", "snake_case", `snake\_case`},
		{"bold", "*wow*", `\*wow\*`},
		{"code", "`x`", "\\`x\\`"},
		{"link", "[a](b)", `\[a\]\(b\)`},
		{"untouched", `a\b.c-d!`, `a\b.c-d!`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeMarkdown(tt.in))
		})
	}
}

func TestFormatComments(t *testing.T) {
	doc := types.NewCommentDocument(
		types.NewCommentEdge("bob", "Nice!", 1700000000),
		types.NewCommentEdge("amy", "so_good", 1700000001),
	)

	assert.Equal(t, "💬 Nice!\n💬 so\\_good", FormatComments(doc))
}

func TestFormatComments_Empty(t *testing.T) {
	assert.Equal(t, "", FormatComments(types.NewCommentDocument()))
	assert.Equal(t, "", FormatComments(nil))
}

func TestChunk_9000Characters(t *testing.T) {
	blob := strings.Repeat("a", 9000)

	chunks := Chunk(blob, MaxMessageLength)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), MaxMessageLength)
	}
	assert.Equal(t, blob, strings.Join(chunks, ""))
}

func TestChunk_ShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, Chunk("hello", MaxMessageLength))
	assert.Nil(t, Chunk("", MaxMessageLength))
}

func TestChunk_ExactLimit(t *testing.T) {
	blob := strings.Repeat("x", MaxMessageLength)
	assert.Len(t, Chunk(blob, MaxMessageLength), 1)
}

func TestChunk_CountsRunes(t *testing.T) {
	blob := strings.Repeat("💬", 10)

	chunks := Chunk(blob, 4)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("💬", 4), chunks[0])
	assert.Equal(t, blob, strings.Join(chunks, ""))
}

func TestChunk_KeepsEscapePairTogether(t *testing.T) {
	text := EscapeMarkdown("abc_def")
	require.Equal(t, `abc\_def`, text)

	chunks := Chunk(text, 4)
	assert.Equal(t, []string{"abc", `\_de`, "f"}, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.False(t, strings.HasSuffix(c, `\`))
	}
}

func TestMessages(t *testing.T) {
	edges := make([]types.CommentEdge, 0, 300)
	for i := 0; i < 300; i++ {
		edges = append(edges, types.NewCommentEdge("u", strings.Repeat("z", 40), int64(1700000000+i)))
	}

	msgs := Messages(types.NewCommentDocument(edges...))
	require.NotEmpty(t, msgs)
	for _, m := range msgs {
		assert.LessOrEqual(t, utf8.RuneCountInString(m), MaxMessageLength)
	}
	assert.Equal(t, FormatComments(types.NewCommentDocument(edges...)), strings.Join(msgs, ""))
}
