// Package sqlite stores posts in an embedded SQLite database using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garcia/facebook-api/internal/domain"
	_ "modernc.org/sqlite"
)

// AUTOINCREMENT keeps SQLite from handing out the id of a deleted last row.
const schema = `
	CREATE TABLE IF NOT EXISTS posts (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		author    TEXT,
		content   TEXT,
		image_url TEXT
	)`

// Repository implements domain.PostRepository on top of SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database file at path, creating it and the posts
// table if needed. The caller should call Close when done.
func NewRepository(ctx context.Context, path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts a new post or replaces an existing one.
func (r *Repository) Save(ctx context.Context, post *domain.Post) error {
	if post.ID == 0 {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO posts (author, content, image_url) VALUES (?, ?, ?)`,
			nullString(post.Author), nullString(post.Content), nullString(post.ImageURL),
		)
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read inserted id: %w", err)
		}
		post.ID = id
		return nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET author = ?, content = ?, image_url = ? WHERE id = ?`,
		nullString(post.Author), nullString(post.Content), nullString(post.ImageURL), post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	if n == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// FindByID retrieves a single post.
func (r *Repository) FindByID(ctx context.Context, id int64) (domain.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, author, content, image_url FROM posts WHERE id = ?`, id,
	)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Post{}, domain.ErrPostNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("select post %d: %w", id, err)
	}
	return p, nil
}

// FindAll retrieves every post ordered by id.
func (r *Repository) FindAll(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author, content, image_url FROM posts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return scanPosts(rows)
}

// FindPage retrieves one page of posts ordered by id.
func (r *Repository) FindPage(ctx context.Context, page domain.PageRequest) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, author, content, image_url
		FROM posts
		ORDER BY id
		LIMIT ? OFFSET ?`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("query posts (limit=%d, offset=%d): %w", page.Size, page.Offset(), err)
	}
	return scanPosts(rows)
}

// DeleteByID removes a post by id.
func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (domain.Post, error) {
	var (
		p                         domain.Post
		author, content, imageURL sql.NullString
	)
	if err := s.Scan(&p.ID, &author, &content, &imageURL); err != nil {
		return domain.Post{}, err
	}
	p.Author = stringPtr(author)
	p.Content = stringPtr(content)
	p.ImageURL = stringPtr(imageURL)
	return p, nil
}

func scanPosts(rows *sql.Rows) ([]domain.Post, error) {
	defer rows.Close()

	posts := make([]domain.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
