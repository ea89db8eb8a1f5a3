// Package mongodb stores posts as MongoDB documents. Numeric ids come from a
// counters collection so they match the relational adapters.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/garcia/facebook-api/internal/domain"
)

const (
	postsCollection    = "posts"
	countersCollection = "counters"
	postsCounterID     = "posts"
)

type postDocument struct {
	ID       int64   `bson:"_id"`
	Author   *string `bson:"author"`
	Content  *string `bson:"content"`
	ImageURL *string `bson:"imageUrl"`
}

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// Repository implements domain.PostRepository using MongoDB.
type Repository struct {
	posts    *mongo.Collection
	counters *mongo.Collection
}

// NewRepository returns a Repository using the posts and counters collections
// of db.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		posts:    db.Collection(postsCollection),
		counters: db.Collection(countersCollection),
	}
}

// Save inserts a new post or replaces an existing one.
func (r *Repository) Save(ctx context.Context, post *domain.Post) error {
	if post.ID == 0 {
		id, err := r.nextID(ctx)
		if err != nil {
			return err
		}
		if _, err := r.posts.InsertOne(ctx, toDocument(*post, id)); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		post.ID = id
		return nil
	}

	res, err := r.posts.ReplaceOne(ctx, bson.M{"_id": post.ID}, toDocument(*post, post.ID))
	if err != nil {
		return fmt.Errorf("replace post %d: %w", post.ID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// FindByID retrieves a single post.
func (r *Repository) FindByID(ctx context.Context, id int64) (domain.Post, error) {
	var doc postDocument
	err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Post{}, domain.ErrPostNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("find post %d: %w", id, err)
	}
	return fromDocument(doc), nil
}

// FindAll retrieves every post ordered by id.
func (r *Repository) FindAll(ctx context.Context) ([]domain.Post, error) {
	return r.find(ctx, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// FindPage retrieves one page of posts ordered by id.
func (r *Repository) FindPage(ctx context.Context, page domain.PageRequest) ([]domain.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Size))
	return r.find(ctx, opts)
}

// DeleteByID removes a post by id.
func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *Repository) find(ctx context.Context, opts *options.FindOptions) ([]domain.Post, error) {
	cur, err := r.posts.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]domain.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, fromDocument(d))
	}
	return posts, nil
}

// nextID atomically increments the posts counter and returns the new value.
func (r *Repository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": postsCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate post id: %w", err)
	}
	return counter.Seq, nil
}

func toDocument(p domain.Post, id int64) postDocument {
	return postDocument{
		ID:       id,
		Author:   p.Author,
		Content:  p.Content,
		ImageURL: p.ImageURL,
	}
}

func fromDocument(d postDocument) domain.Post {
	return domain.Post{
		ID:       d.ID,
		Author:   d.Author,
		Content:  d.Content,
		ImageURL: d.ImageURL,
	}
}
