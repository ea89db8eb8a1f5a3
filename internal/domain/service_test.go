package domain_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/garcia/facebook-api/internal/domain"
	"github.com/garcia/facebook-api/internal/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PostEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.PostEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) recorded() []domain.PostEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PostEvent(nil), p.events...)
}

func newService(t *testing.T, opts ...domain.ServiceOption) (*domain.PostService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]domain.ServiceOption{domain.WithEventPublisher(pub)}, opts...)
	return domain.NewPostService(memory.NewRepository(), logger, opts...), pub
}

func str(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestPostService_CreateThenGet(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.PostFields{Author: str("alice"), Content: str("hi")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("id not assigned")
	}
	if created.ImageURL != nil {
		t.Fatalf("imageUrl=%s want nil", deref(created.ImageURL))
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != created.ID || deref(got.Author) != "alice" || deref(got.Content) != "hi" || got.ImageURL != nil {
		t.Fatalf("got=%+v", got)
	}
}

func TestPostService_ExampleFlow(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.PostFields{Author: str("alice"), Content: str("hi")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	p, err = svc.Patch(ctx, p.ID, domain.PostPatch{Content: str("hello")})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if deref(p.Author) != "alice" || deref(p.Content) != "hello" || p.ImageURL != nil {
		t.Fatalf("after patch=%+v", p)
	}

	p, err = svc.Replace(ctx, p.ID, domain.PostFields{Author: str("bob")})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if deref(p.Author) != "bob" || p.Content != nil || p.ImageURL != nil {
		t.Fatalf("after replace=%+v", p)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("Get after delete err=%v want ErrPostNotFound", err)
	}
}

func TestPostService_PatchWithNoFieldsIsNoOp(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.PostFields{Author: str("a"), Content: str("c"), ImageURL: str("u")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := svc.Patch(ctx, p.ID, domain.PostPatch{})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if deref(got.Author) != "a" || deref(got.Content) != "c" || deref(got.ImageURL) != "u" {
		t.Fatalf("got=%+v", got)
	}
}

func TestPostService_MissingIDIsNotFound(t *testing.T) {
	t.Parallel()
	svc, pub := newService(t)
	ctx := context.Background()
	const missing = 999

	if _, err := svc.Get(ctx, missing); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("Get err=%v", err)
	}
	if _, err := svc.Replace(ctx, missing, domain.PostFields{Author: str("x")}); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("Replace err=%v", err)
	}
	if _, err := svc.Patch(ctx, missing, domain.PostPatch{Author: str("x")}); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("Patch err=%v", err)
	}
	if err := svc.Delete(ctx, missing); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("Delete err=%v", err)
	}

	all, err := svc.List(ctx, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("Replace on a missing id created a post: %+v", all)
	}
	if n := len(pub.recorded()); n != 0 {
		t.Fatalf("events=%d want=0", n)
	}
}

func TestPostService_DeleteTwice(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.PostFields{Author: str("a")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("second Delete err=%v want ErrPostNotFound", err)
	}
}

func TestPostService_ListPagination(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, domain.WithMaxPageSize(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, domain.PostFields{Author: str("a")}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := svc.List(ctx, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len=%d want=5", len(all))
	}

	page, err := svc.List(ctx, &domain.PageRequest{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 2 || page[0].ID != all[2].ID || page[1].ID != all[3].ID {
		t.Fatalf("page=%+v", page)
	}

	past, err := svc.List(ctx, &domain.PageRequest{Page: 9, Size: 2})
	if err != nil {
		t.Fatalf("List past end: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("past end len=%d want=0", len(past))
	}
}

func TestPostService_ListRejectsInvalidPage(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, domain.WithMaxPageSize(3))

	for _, pr := range []domain.PageRequest{
		{Page: -1, Size: 2},
		{Page: 0, Size: 0},
		{Page: 0, Size: -5},
		{Page: 0, Size: 4},
		{Page: math.MaxInt / 2, Size: 3},
		{Page: math.MaxInt, Size: 2},
	} {
		if _, err := svc.List(context.Background(), &pr); !errors.Is(err, domain.ErrInvalidPage) {
			t.Fatalf("List(%+v) err=%v want ErrInvalidPage", pr, err)
		}
	}
	if svc.MaxPageSize() != 3 {
		t.Fatalf("MaxPageSize=%d want=3", svc.MaxPageSize())
	}
}

func TestPostService_PublishesMutationEvents(t *testing.T) {
	t.Parallel()
	svc, pub := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.PostFields{Author: str("a")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Patch(ctx, p.ID, domain.PostPatch{Content: str("c")}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got := pub.recorded()
	want := []domain.EventType{domain.EventCreated, domain.EventUpdated, domain.EventDeleted}
	if len(got) != len(want) {
		t.Fatalf("events=%d want=%d", len(got), len(want))
	}
	seen := make(map[string]bool)
	for i, e := range got {
		if e.Type != want[i] || e.PostID != p.ID {
			t.Fatalf("event[%d]=%+v want type=%s post=%d", i, e, want[i], p.ID)
		}
		if e.ID == "" || seen[e.ID] {
			t.Fatalf("event[%d] id=%q not unique", i, e.ID)
		}
		seen[e.ID] = true
		if e.OccurredAt.IsZero() {
			t.Fatalf("event[%d] has no timestamp", i)
		}
	}
	if got[1].Post == nil || deref(got[1].Post.Content) != "c" {
		t.Fatalf("update event post=%+v", got[1].Post)
	}
	if got[2].Post != nil {
		t.Fatalf("delete event carries post=%+v", got[2].Post)
	}
}

func TestPostService_PublishFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()
	svc, pub := newService(t)
	pub.err = errors.New("broker down")

	p, err := svc.Create(context.Background(), domain.PostFields{Author: str("a")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestPostService_EventPostIsACopy(t *testing.T) {
	t.Parallel()
	svc, pub := newService(t)

	p, err := svc.Create(context.Background(), domain.PostFields{Author: str("a")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	*p.Author = "mutated"

	events := pub.recorded()
	if len(events) != 1 || deref(events[0].Post.Author) != "a" {
		t.Fatalf("event post=%+v", events[0].Post)
	}
}

func TestPostService_ListAcceptsLargestRepresentablePage(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, domain.WithMaxPageSize(3))

	got, err := svc.List(context.Background(), &domain.PageRequest{Page: math.MaxInt / 3, Size: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len=%d want=0", len(got))
	}
}

func TestPostService_ReplaceIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.PostFields{Author: str("a"), Content: str("c"), ImageURL: str("u")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	fields := domain.PostFields{Author: str("bob"), ImageURL: str("http://img/b.png")}
	first, err := svc.Replace(ctx, p.ID, fields)
	if err != nil {
		t.Fatalf("first Replace: %v", err)
	}
	second, err := svc.Replace(ctx, p.ID, fields)
	if err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	for name, post := range map[string]domain.Post{"first": first, "second": second, "stored": got} {
		if post.ID != p.ID || deref(post.Author) != "bob" || post.Content != nil || deref(post.ImageURL) != "http://img/b.png" {
			t.Fatalf("%s=%+v", name, post)
		}
	}
}

func TestPostService_PatchAuthorOnly(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.PostFields{Author: str("a"), Content: str("c"), ImageURL: str("u")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Patch(ctx, p.ID, domain.PostPatch{Author: str("zed")}); err != nil {
		t.Fatalf("Patch: %v", err)
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if deref(got.Author) != "zed" || deref(got.Content) != "c" || deref(got.ImageURL) != "u" {
		t.Fatalf("got=%+v want author=zed content=c imageUrl=u", got)
	}
}
