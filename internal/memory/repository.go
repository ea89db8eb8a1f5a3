package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/garcia/facebook-api/internal/domain"
)

// Repository is an in-memory implementation of domain.PostRepository.
// It is safe for concurrent use.
type Repository struct {
	mu     sync.RWMutex
	byID   map[int64]domain.Post
	nextID int64
}

func NewRepository() *Repository {
	return &Repository{
		byID:   make(map[int64]domain.Post),
		nextID: 1,
	}
}

func (r *Repository) Save(ctx context.Context, post *domain.Post) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == 0 {
		post.ID = r.nextID
		r.nextID++
	} else if _, ok := r.byID[post.ID]; !ok {
		return domain.ErrPostNotFound
	}
	r.byID[post.ID] = post.Clone()
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (domain.Post, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Post{}, domain.ErrPostNotFound
	}
	return p.Clone(), nil
}

func (r *Repository) FindAll(ctx context.Context) ([]domain.Post, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(), nil
}

func (r *Repository) FindPage(ctx context.Context, page domain.PageRequest) ([]domain.Post, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sortedLocked()
	start := page.Offset()
	if start >= len(all) {
		return []domain.Post{}, nil
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repository) sortedLocked() []domain.Post {
	out := make([]domain.Post, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
