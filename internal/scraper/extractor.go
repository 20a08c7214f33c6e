package scraper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"instagram-comment-scraper/pkg/types"
)

// Wire shapes with pointers so absent fields can be told apart from zero values.
type wireDocument struct {
	Data *struct {
		ShortcodeMedia *struct {
			EdgeMediaToComment *struct {
				Count    int             `json:"count"`
				PageInfo *types.PageInfo `json:"page_info"`
				Edges    []wireEdge      `json:"edges"`
			} `json:"edge_media_to_comment"`
		} `json:"shortcode_media"`
	} `json:"data"`
}

type wireEdge struct {
	Node *struct {
		ID        string  `json:"id"`
		Text      *string `json:"text"`
		CreatedAt *int64  `json:"created_at"`
		Owner     *struct {
			ID       string  `json:"id"`
			Username *string `json:"username"`
		} `json:"owner"`
	} `json:"node"`
}

type Extractor struct {
	logger *logrus.Logger
}

func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses the rendered page into a comment document. Every failure is
// returned as a KindExtraction ScrapeError; the document is either complete or nil.
func (e *Extractor) Extract(rawPage string) (*types.CommentDocument, error) {
	doc, err := e.extract(rawPage)
	if err != nil {
		e.logger.Errorf("Error extracting comment data: %v", err)
		return nil, newScrapeError(KindExtraction, "extract", err)
	}
	return doc, nil
}

func (e *Extractor) extract(rawPage string) (*types.CommentDocument, error) {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(rawPage))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentMissing, err)
	}

	cell := page.Find(ContentCell).First()
	if cell.Length() == 0 {
		cell = page.Find(RawBody).First()
	}
	if cell.Length() == 0 {
		return nil, ErrContentMissing
	}

	body := strings.TrimSpace(cell.Text())
	if body == "" {
		return nil, ErrContentMissing
	}

	var wire wireDocument
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return wire.toDocument()
}

func (w *wireDocument) toDocument() (*types.CommentDocument, error) {
	if w.Data == nil || w.Data.ShortcodeMedia == nil || w.Data.ShortcodeMedia.EdgeMediaToComment == nil {
		return nil, fmt.Errorf("%w: missing data.shortcode_media.edge_media_to_comment", ErrMalformedDocument)
	}
	conn := w.Data.ShortcodeMedia.EdgeMediaToComment
	if conn.Edges == nil {
		return nil, fmt.Errorf("%w: missing edges", ErrMalformedDocument)
	}

	edges := make([]types.CommentEdge, 0, len(conn.Edges))
	for i, edge := range conn.Edges {
		node := edge.Node
		if node == nil || node.Text == nil || node.CreatedAt == nil || node.Owner == nil || node.Owner.Username == nil {
			return nil, fmt.Errorf("%w: edge %d lacks text, owner.username or created_at", ErrMalformedDocument, i)
		}
		edges = append(edges, types.CommentEdge{
			Node: types.CommentNode{
				ID:        node.ID,
				Text:      *node.Text,
				CreatedAt: *node.CreatedAt,
				Owner: types.CommentOwner{
					ID:       node.Owner.ID,
					Username: *node.Owner.Username,
				},
			},
		})
	}

	doc := &types.CommentDocument{}
	doc.Data.ShortcodeMedia.EdgeMediaToComment = types.CommentConnection{
		Count:    conn.Count,
		PageInfo: conn.PageInfo,
		Edges:    edges,
	}
	return doc, nil
}
