package scraper

import (
	"encoding/json"
	"html"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-comment-scraper/pkg/types"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func viewSource(body string) string {
	return `<html><body><table><tr><td class="line-number"></td><td class="line-content">` +
		html.EscapeString(body) + `</td></tr></table></body></html>`
}

func TestExtract_RoundTrip(t *testing.T) {
	doc := types.NewCommentDocument(
		types.NewCommentEdge("bob", "Nice!", 1700000000),
		types.NewCommentEdge("amy", `<b>"quoted" & tagged</b>`, 1700000100),
	)
	doc.Data.ShortcodeMedia.EdgeMediaToComment.PageInfo = &types.PageInfo{HasNextPage: true, EndCursor: "QVF"}
	body, err := json.Marshal(doc)
	require.NoError(t, err)

	got, err := NewExtractor(quietLogger()).Extract(viewSource(string(body)))
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestExtract_PreFallback(t *testing.T) {
	body := `{"data":{"shortcode_media":{"edge_media_to_comment":{"edges":[{"node":{"text":"hi","created_at":1,"owner":{"username":"u"}}}]}}}}`

	got, err := NewExtractor(quietLogger()).Extract("<html><body><pre>" + body + "</pre></body></html>")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "u", got.Edges()[0].Node.Owner.Username)
}

func TestExtract_EmptyEdges(t *testing.T) {
	got, err := NewExtractor(quietLogger()).Extract(viewSource(`{"data":{"shortcode_media":{"edge_media_to_comment":{"count":0,"edges":[]}}}}`))
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestExtract_Absent(t *testing.T) {
	tests := []struct {
		name string
		page string
		want error
	}{
		{"no content cell", "<html><body><p>login required</p></body></html>", ErrContentMissing},
		{"empty cell", viewSource("   "), ErrContentMissing},
		{"not json", viewSource("<!DOCTYPE html>"), ErrMalformedDocument},
		{"truncated json", viewSource(`{"data":{"shortcode_media":`), ErrMalformedDocument},
		{"missing path", viewSource(`{"data":{"user":null}}`), ErrMalformedDocument},
		{"missing edges", viewSource(`{"data":{"shortcode_media":{"edge_media_to_comment":{"count":3}}}}`), ErrMalformedDocument},
		{
			"edge without username",
			viewSource(`{"data":{"shortcode_media":{"edge_media_to_comment":{"edges":[{"node":{"text":"a","created_at":1,"owner":{}}}]}}}}`),
			ErrMalformedDocument,
		},
		{
			"edge without created_at",
			viewSource(`{"data":{"shortcode_media":{"edge_media_to_comment":{"edges":[{"node":{"text":"a","owner":{"username":"u"}}}]}}}}`),
			ErrMalformedDocument,
		},
		{
			"edge without text",
			viewSource(`{"data":{"shortcode_media":{"edge_media_to_comment":{"edges":[{"node":{"created_at":1,"owner":{"username":"u"}}}]}}}}`),
			ErrMalformedDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtractor(quietLogger()).Extract(tt.page)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindExtraction, kind)
		})
	}
}
