package domain

import "time"

// Post is a single social post. Author, Content and ImageURL are nullable and
// serialize as JSON null when unset.
type Post struct {
	// ID is assigned by the repository on first save and never changes.
	ID int64 `json:"id"`

	Author   *string `json:"author"`
	Content  *string `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

// PostFields carries the mutable fields of a post, as received for create and
// full-update. A nil field is stored as null.
type PostFields struct {
	Author   *string
	Content  *string
	ImageURL *string
}

// PostPatch carries a partial update. A nil field leaves the stored value
// untouched.
type PostPatch struct {
	Author   *string
	Content  *string
	ImageURL *string
}

// PageRequest selects the Page-th (zero-indexed) slice of Size posts.
type PageRequest struct {
	Page int
	Size int
}

// Offset is the number of posts skipped before the page starts.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// EventType names the kind of mutation a PostEvent reports.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// PostEvent is emitted after a post has been created, updated or deleted.
// Post is nil for deletions.
type PostEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	PostID     int64     `json:"postId"`
	Post       *Post     `json:"post,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Clone returns a deep copy so callers never share field pointers with a
// repository's stored value.
func (p Post) Clone() Post {
	return Post{
		ID:       p.ID,
		Author:   cloneString(p.Author),
		Content:  cloneString(p.Content),
		ImageURL: cloneString(p.ImageURL),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
