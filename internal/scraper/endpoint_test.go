package scraper

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-comment-scraper/pkg/types"
)

func TestExtractShortcode(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"post", "https://www.instagram.com/p/ABC123xyz/", "ABC123xyz"},
		{"no trailing slash", "https://www.instagram.com/p/ABC123xyz", "ABC123xyz"},
		{"reel with query", "https://www.instagram.com/reel/Cx9_abc/?igsh=1", "Cx9_abc"},
		{"surrounding whitespace", "  https://www.instagram.com/p/XYZ/  ", "XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractShortcode(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractShortcode_Absent(t *testing.T) {
	for _, input := range []string{
		"",
		"hello",
		"https://www.instagram.com/",
		"https://www.instagram.com/p/",
		"instagram.com/p/ABC",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ExtractShortcode(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidURL)

			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindInvalidIdentifier, kind)
		})
	}
}

func parseEndpoint(t *testing.T, target string) (url.Values, types.CommentQuery) {
	t.Helper()

	u, err := url.Parse(strings.TrimPrefix(target, viewSourcePrefix))
	require.NoError(t, err)

	var query types.CommentQuery
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("variables")), &query))
	return u.Query(), query
}

func TestBuild(t *testing.T) {
	eb := NewEndpointBuilder("abc123", true)

	target := eb.Build("ABC123xyz", 5000)
	assert.True(t, strings.HasPrefix(target, "view-source:https://www.instagram.com/graphql/query/?"))

	params, query := parseEndpoint(t, target)
	assert.Equal(t, "abc123", params.Get("query_hash"))
	assert.Equal(t, types.CommentQuery{Shortcode: "ABC123xyz", First: 5000}, query)
}

func TestBuild_Deterministic(t *testing.T) {
	eb := NewEndpointBuilder("abc123", true)
	assert.Equal(t, eb.Build("S", 10), eb.Build("S", 10))
	assert.NotEqual(t, eb.Build("S", 10), eb.Build("S", 11))
}

func TestBuild_EscapesShortcode(t *testing.T) {
	eb := NewEndpointBuilder("h", true)

	_, query := parseEndpoint(t, eb.Build(`we"ird&code`, 1))
	assert.Equal(t, `we"ird&code`, query.Shortcode)
}

func TestBuild_WithoutViewSource(t *testing.T) {
	eb := NewEndpointBuilder("h", false)
	assert.True(t, strings.HasPrefix(eb.Build("S", 1), GraphQLEndpoint+"?"))
}
