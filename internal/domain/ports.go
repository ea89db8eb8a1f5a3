package domain

import (
	"context"
	"errors"
)

var (
	// ErrPostNotFound is returned when no post exists for the requested id.
	ErrPostNotFound = errors.New("post not found")

	// ErrInvalidPage is returned when a page request is out of bounds.
	ErrInvalidPage = errors.New("invalid page request")
)

// PostRepository defines persistence operations for posts. Implementations
// must be safe for concurrent use.
type PostRepository interface {
	// Save inserts the post when its ID is zero, assigning a new ID, and
	// otherwise replaces the stored post with the same ID. Replacing a post
	// that does not exist returns ErrPostNotFound.
	Save(ctx context.Context, post *Post) error

	// FindByID returns ErrPostNotFound if the id is unknown.
	FindByID(ctx context.Context, id int64) (Post, error)

	// FindAll returns every post ordered by ID.
	FindAll(ctx context.Context) ([]Post, error)

	// FindPage returns one page of posts ordered by ID. Pages past the end
	// are empty.
	FindPage(ctx context.Context, page PageRequest) ([]Post, error)

	// DeleteByID removes a post permanently. Returns ErrPostNotFound if the
	// id is unknown.
	DeleteByID(ctx context.Context, id int64) error
}

// EventPublisher delivers post change events to interested listeners.
type EventPublisher interface {
	Publish(ctx context.Context, event PostEvent) error
}
