// Package repotest holds the behavioural contract every domain.PostRepository
// implementation must satisfy. Adapter packages run it from their own tests.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garcia/facebook-api/internal/domain"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) domain.PostRepository

// Run exercises repo behaviour shared by all storage adapters.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("SaveAssignsDistinctIDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)

		a := post("alice", "one", "")
		b := post("bob", "two", "")
		mustSave(t, ctx, repo, &a)
		mustSave(t, ctx, repo, &b)

		if a.ID == 0 || b.ID == 0 {
			t.Fatalf("ids not assigned: a=%d b=%d", a.ID, b.ID)
		}
		if a.ID == b.ID {
			t.Fatalf("ids collide: %d", a.ID)
		}
	})

	t.Run("FindByIDRoundTripsNullFields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)

		p := domain.Post{Author: str("alice"), Content: str("hi")}
		mustSave(t, ctx, repo, &p)

		got, err := repo.FindByID(ctx, p.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.ID != p.ID || deref(got.Author) != "alice" || deref(got.Content) != "hi" {
			t.Fatalf("got=%+v want id=%d author=alice content=hi", got, p.ID)
		}
		if got.ImageURL != nil {
			t.Fatalf("imageUrl=%q want nil", *got.ImageURL)
		}
	})

	t.Run("SaveExistingReplacesFields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)

		p := post("alice", "hi", "http://img/1.png")
		mustSave(t, ctx, repo, &p)
		id := p.ID

		p.Content = str("hello")
		p.ImageURL = nil
		mustSave(t, ctx, repo, &p)
		if p.ID != id {
			t.Fatalf("id changed on update: got=%d want=%d", p.ID, id)
		}

		got, err := repo.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if deref(got.Author) != "alice" || deref(got.Content) != "hello" || got.ImageURL != nil {
			t.Fatalf("got=%+v", got)
		}
	})

	t.Run("SaveUnknownIDIsNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)

		p := post("ghost", "", "")
		p.ID = 987654
		if err := repo.Save(ctx, &p); !errors.Is(err, domain.ErrPostNotFound) {
			t.Fatalf("err=%v want ErrPostNotFound", err)
		}
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("len=%d want=0 (no upsert)", len(all))
		}
	})

	t.Run("FindByIDMissingIsNotFound", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.FindByID(testContext(t), 424242); !errors.Is(err, domain.ErrPostNotFound) {
			t.Fatalf("err=%v want ErrPostNotFound", err)
		}
	})

	t.Run("FindAllOrdersByID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)

		empty, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("len=%d want=0", len(empty))
		}

		ids := seed(t, ctx, repo, 5)
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if len(all) != len(ids) {
			t.Fatalf("len=%d want=%d", len(all), len(ids))
		}
		for i := range ids {
			if all[i].ID != ids[i] {
				t.Fatalf("all[%d].ID=%d want=%d", i, all[i].ID, ids[i])
			}
		}
	})

	t.Run("FindPageSlicesInIDOrder", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)
		ids := seed(t, ctx, repo, 5)

		cases := []struct {
			page, size int
			want       []int64
		}{
			{0, 2, ids[0:2]},
			{1, 2, ids[2:4]},
			{2, 2, ids[4:5]},
			{3, 2, nil},
			{0, 10, ids},
		}
		for _, tc := range cases {
			got, err := repo.FindPage(ctx, domain.PageRequest{Page: tc.page, Size: tc.size})
			if err != nil {
				t.Fatalf("FindPage(%d,%d): %v", tc.page, tc.size, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("FindPage(%d,%d) len=%d want=%d", tc.page, tc.size, len(got), len(tc.want))
			}
			for i := range tc.want {
				if got[i].ID != tc.want[i] {
					t.Fatalf("FindPage(%d,%d)[%d].ID=%d want=%d", tc.page, tc.size, i, got[i].ID, tc.want[i])
				}
			}
		}
	})

	t.Run("DeleteByIDRemovesOnce", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)

		p := post("alice", "bye", "")
		mustSave(t, ctx, repo, &p)

		if err := repo.DeleteByID(ctx, p.ID); err != nil {
			t.Fatalf("DeleteByID: %v", err)
		}
		if _, err := repo.FindByID(ctx, p.ID); !errors.Is(err, domain.ErrPostNotFound) {
			t.Fatalf("after delete err=%v want ErrPostNotFound", err)
		}
		if err := repo.DeleteByID(ctx, p.ID); !errors.Is(err, domain.ErrPostNotFound) {
			t.Fatalf("second delete err=%v want ErrPostNotFound", err)
		}
	})

	t.Run("IDsAreNotReusedAfterDelete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := testContext(t)

		a := post("a", "", "")
		mustSave(t, ctx, repo, &a)
		if err := repo.DeleteByID(ctx, a.ID); err != nil {
			t.Fatalf("DeleteByID: %v", err)
		}
		b := post("b", "", "")
		mustSave(t, ctx, repo, &b)
		if b.ID == a.ID {
			t.Fatalf("id %d reassigned after delete", a.ID)
		}
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func seed(t *testing.T, ctx context.Context, repo domain.PostRepository, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		p := post("author", "post", "")
		mustSave(t, ctx, repo, &p)
		ids = append(ids, p.ID)
	}
	return ids
}

func mustSave(t *testing.T, ctx context.Context, repo domain.PostRepository, p *domain.Post) {
	t.Helper()
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func post(author, content, imageURL string) domain.Post {
	p := domain.Post{Author: str(author)}
	if content != "" {
		p.Content = str(content)
	}
	if imageURL != "" {
		p.ImageURL = str(imageURL)
	}
	return p
}

func str(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
