package types

import (
	"fmt"
)

// CommentQuery is serialized into the "variables" parameter of the comment endpoint.
type CommentQuery struct {
	Shortcode string `json:"shortcode"`
	First     int    `json:"first"`
}

// CommentDocument mirrors data.shortcode_media.edge_media_to_comment of the
// GraphQL response.
type CommentDocument struct {
	Data CommentData `json:"data"`
}

type CommentData struct {
	ShortcodeMedia ShortcodeMedia `json:"shortcode_media"`
}

type ShortcodeMedia struct {
	EdgeMediaToComment CommentConnection `json:"edge_media_to_comment"`
}

type CommentConnection struct {
	Count    int           `json:"count,omitempty"`
	PageInfo *PageInfo     `json:"page_info,omitempty"`
	Edges    []CommentEdge `json:"edges"`
}

type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor,omitempty"`
}

type CommentEdge struct {
	Node CommentNode `json:"node"`
}

type CommentNode struct {
	ID        string       `json:"id,omitempty"`
	Text      string       `json:"text"`
	CreatedAt int64        `json:"created_at"`
	Owner     CommentOwner `json:"owner"`
}

type CommentOwner struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
}

// Edges returns the comment edges of the document, or nil for a nil document.
func (d *CommentDocument) Edges() []CommentEdge {
	if d == nil {
		return nil
	}
	return d.Data.ShortcodeMedia.EdgeMediaToComment.Edges
}

// Len is the number of comments carried by the document.
func (d *CommentDocument) Len() int {
	return len(d.Edges())
}

func (d *CommentDocument) String() string {
	if d == nil {
		return "CommentDocument(nil)"
	}
	conn := d.Data.ShortcodeMedia.EdgeMediaToComment
	return fmt.Sprintf("Comments: %d, Reported: %d, HasNextPage: %t",
		len(conn.Edges), conn.Count, conn.PageInfo != nil && conn.PageInfo.HasNextPage)
}

// NewCommentDocument wraps edges in a document.
func NewCommentDocument(edges ...CommentEdge) *CommentDocument {
	doc := &CommentDocument{}
	doc.Data.ShortcodeMedia.EdgeMediaToComment = CommentConnection{
		Count: len(edges),
		Edges: edges,
	}
	return doc
}

// NewCommentEdge builds one edge from its three required fields.
func NewCommentEdge(username, text string, createdAt int64) CommentEdge {
	return CommentEdge{Node: CommentNode{
		Text:      text,
		CreatedAt: createdAt,
		Owner:     CommentOwner{Username: username},
	}}
}
