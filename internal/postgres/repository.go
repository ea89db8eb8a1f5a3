package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garcia/facebook-api/internal/domain"
)

// Repository implements domain.PostRepository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by pool. The caller owns the pool
// and closes it.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save inserts a new post or replaces an existing one.
func (r *Repository) Save(ctx context.Context, post *domain.Post) error {
	if post.ID == 0 {
		err := r.pool.QueryRow(ctx, `
			INSERT INTO posts (author, content, image_url)
			VALUES ($1, $2, $3)
			RETURNING id`,
			post.Author, post.Content, post.ImageURL,
		).Scan(&post.ID)
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		return nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET author = $1, content = $2, image_url = $3
		WHERE id = $4`,
		post.Author, post.Content, post.ImageURL, post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// FindByID retrieves a single post.
func (r *Repository) FindByID(ctx context.Context, id int64) (domain.Post, error) {
	var p domain.Post
	err := r.pool.QueryRow(ctx,
		`SELECT id, author, content, image_url FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.Author, &p.Content, &p.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Post{}, domain.ErrPostNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("select post %d: %w", id, err)
	}
	return p, nil
}

// FindAll retrieves every post ordered by id.
func (r *Repository) FindAll(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, author, content, image_url
		FROM posts
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return scanPosts(rows)
}

// FindPage retrieves one page of posts ordered by id.
func (r *Repository) FindPage(ctx context.Context, page domain.PageRequest) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, author, content, image_url
		FROM posts
		ORDER BY id
		LIMIT $1 OFFSET $2`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("query posts (limit=%d, offset=%d): %w", page.Size, page.Offset(), err)
	}
	return scanPosts(rows)
}

// DeleteByID removes a post by id.
func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func scanPosts(rows pgx.Rows) ([]domain.Post, error) {
	defer rows.Close()

	posts := make([]domain.Post, 0)
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Author, &p.Content, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
