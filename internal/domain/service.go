package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxPageSize bounds PageRequest.Size when the service is built without
// an explicit limit.
const DefaultMaxPageSize = 100

// PostService is the core domain service. It translates CRUD intents into
// repository operations and announces every successful mutation to the
// configured EventPublisher.
type PostService struct {
	repo        PostRepository
	events      EventPublisher
	maxPageSize int
	logger      *slog.Logger
}

// ServiceOption customizes a PostService.
type ServiceOption func(*PostService)

// WithEventPublisher sets the publisher notified after each mutation.
func WithEventPublisher(p EventPublisher) ServiceOption {
	return func(s *PostService) {
		s.events = p
	}
}

// WithMaxPageSize overrides DefaultMaxPageSize. Values below 1 are ignored.
func WithMaxPageSize(n int) ServiceOption {
	return func(s *PostService) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// NewPostService creates a PostService backed by repo.
func NewPostService(repo PostRepository, logger *slog.Logger, opts ...ServiceOption) *PostService {
	s := &PostService{
		repo:        repo,
		maxPageSize: DefaultMaxPageSize,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxPageSize returns the largest page size List accepts.
func (s *PostService) MaxPageSize() int {
	return s.maxPageSize
}

// Create stores a new post. The repository assigns its ID.
func (s *PostService) Create(ctx context.Context, fields PostFields) (Post, error) {
	post := Post{
		Author:   fields.Author,
		Content:  fields.Content,
		ImageURL: fields.ImageURL,
	}
	if err := s.repo.Save(ctx, &post); err != nil {
		return Post{}, fmt.Errorf("save post: %w", err)
	}

	s.logger.Debug("post created", "id", post.ID)
	s.publish(ctx, EventCreated, post.ID, &post)
	return post, nil
}

// List returns all posts, or a single page of them when page is non-nil.
func (s *PostService) List(ctx context.Context, page *PageRequest) ([]Post, error) {
	if page == nil {
		posts, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("find all posts: %w", err)
		}
		return posts, nil
	}

	if err := s.checkPage(*page); err != nil {
		return nil, err
	}
	posts, err := s.repo.FindPage(ctx, *page)
	if err != nil {
		return nil, fmt.Errorf("find posts page=%d size=%d: %w", page.Page, page.Size, err)
	}
	return posts, nil
}

// Get returns the post with the given id or ErrPostNotFound.
func (s *PostService) Get(ctx context.Context, id int64) (Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Post{}, wrapLookup(id, err)
	}
	return post, nil
}

// Replace overwrites every mutable field of an existing post, including
// setting fields to null. It never creates a post.
func (s *PostService) Replace(ctx context.Context, id int64, fields PostFields) (Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Post{}, wrapLookup(id, err)
	}

	post.Author = fields.Author
	post.Content = fields.Content
	post.ImageURL = fields.ImageURL

	return s.update(ctx, post)
}

// Patch overwrites only the fields set in patch.
func (s *PostService) Patch(ctx context.Context, id int64, patch PostPatch) (Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Post{}, wrapLookup(id, err)
	}

	if patch.Author != nil {
		post.Author = patch.Author
	}
	if patch.Content != nil {
		post.Content = patch.Content
	}
	if patch.ImageURL != nil {
		post.ImageURL = patch.ImageURL
	}

	return s.update(ctx, post)
}

// Delete removes a post permanently.
func (s *PostService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return wrapLookup(id, err)
	}

	s.logger.Debug("post deleted", "id", id)
	s.publish(ctx, EventDeleted, id, nil)
	return nil
}

func (s *PostService) update(ctx context.Context, post Post) (Post, error) {
	if err := s.repo.Save(ctx, &post); err != nil {
		// The post can disappear between the lookup and the save.
		return Post{}, wrapLookup(post.ID, err)
	}

	s.logger.Debug("post updated", "id", post.ID)
	s.publish(ctx, EventUpdated, post.ID, &post)
	return post, nil
}

func (s *PostService) checkPage(p PageRequest) error {
	if p.Page < 0 {
		return fmt.Errorf("%w: page must be >= 0, got %d", ErrInvalidPage, p.Page)
	}
	if p.Size < 1 || p.Size > s.maxPageSize {
		return fmt.Errorf("%w: size must be between 1 and %d, got %d", ErrInvalidPage, s.maxPageSize, p.Size)
	}
	// Offset must fit in an int.
	if p.Page > math.MaxInt/p.Size {
		return fmt.Errorf("%w: page %d is out of range for size %d", ErrInvalidPage, p.Page, p.Size)
	}
	return nil
}

func (s *PostService) publish(ctx context.Context, typ EventType, id int64, post *Post) {
	if s.events == nil {
		return
	}

	event := PostEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		PostID:     id,
		OccurredAt: time.Now().UTC(),
	}
	if post != nil {
		cp := post.Clone()
		event.Post = &cp
	}

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish post event failed", "type", typ, "id", id, "error", err)
	}
}

// wrapLookup keeps ErrPostNotFound matchable with errors.Is.
func wrapLookup(id int64, err error) error {
	return fmt.Errorf("post %d: %w", id, err)
}
