package scraper

import (
	"encoding/json"
	"net/url"
	"strings"

	"instagram-comment-scraper/pkg/types"
)

const (
	GraphQLEndpoint  = "https://www.instagram.com/graphql/query/"
	viewSourcePrefix = "view-source:"
)

// EndpointBuilder constructs comment query URLs. It holds no state beyond its
// configuration, so Build is deterministic.
type EndpointBuilder struct {
	endpoint   string
	queryHash  string
	viewSource bool
}

func NewEndpointBuilder(queryHash string, viewSource bool) *EndpointBuilder {
	return &EndpointBuilder{
		endpoint:   GraphQLEndpoint,
		queryHash:  queryHash,
		viewSource: viewSource,
	}
}

// Build returns the comment endpoint for shortcode, asking for up to first
// comments. With view-source enabled the browser shows the raw JSON body as text
// instead of handling the response itself.
func (eb *EndpointBuilder) Build(shortcode string, first int) string {
	// Marshalling a struct of a string and an int cannot fail
	variables, _ := json.Marshal(types.CommentQuery{Shortcode: shortcode, First: first})

	params := url.Values{}
	params.Set("query_hash", eb.queryHash)
	params.Set("variables", string(variables))

	var b strings.Builder
	if eb.viewSource {
		b.WriteString(viewSourcePrefix)
	}
	b.WriteString(eb.endpoint)
	b.WriteString("?")
	b.WriteString(params.Encode())
	return b.String()
}

// ExtractShortcode returns the path segment at index 4 of a post URL such as
// https://www.instagram.com/p/<shortcode>/.
func ExtractShortcode(postURL string) (string, error) {
	parts := strings.Split(strings.TrimSpace(postURL), "/")
	if len(parts) < 5 || parts[4] == "" {
		return "", newScrapeError(KindInvalidIdentifier, "extract shortcode", ErrInvalidURL)
	}
	return parts[4], nil
}
