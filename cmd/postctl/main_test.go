package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garcia/facebook-api/internal/client"
	"github.com/garcia/facebook-api/internal/config"
	"github.com/garcia/facebook-api/internal/domain"
	"github.com/garcia/facebook-api/internal/events"
	"github.com/garcia/facebook-api/internal/httpserver"
	"github.com/garcia/facebook-api/internal/memory"
)

func newAPI(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := events.NewHub(0, logger)
	svc := domain.NewPostService(memory.NewRepository(), logger, domain.WithEventPublisher(hub))
	ts := httptest.NewServer(httpserver.NewServer(&config.Config{}, svc, hub, logger).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runJSON(t *testing.T, url string, v any, args ...string) {
	t.Helper()
	var out bytes.Buffer
	if err := run(append([]string{"-server", url}, args...), &out); err != nil {
		t.Fatalf("postctl %s: %v", strings.Join(args, " "), err)
	}
	if v != nil {
		if err := json.Unmarshal(out.Bytes(), v); err != nil {
			t.Fatalf("decode %q: %v", out.String(), err)
		}
	}
}

func TestRun_Lifecycle(t *testing.T) {
	url := newAPI(t)

	var p domain.Post
	runJSON(t, url, &p, "create", "-author", "alice", "-content", "hi")
	if p.ID != 1 || *p.Author != "alice" || *p.Content != "hi" || p.ImageURL != nil {
		t.Fatalf("created=%+v", p)
	}

	runJSON(t, url, &p, "patch", "-id", "1", "-content", "hello")
	if *p.Author != "alice" || *p.Content != "hello" {
		t.Fatalf("patched=%+v", p)
	}

	runJSON(t, url, &p, "update", "-id", "1", "-author", "bob")
	if *p.Author != "bob" || p.Content != nil {
		t.Fatalf("updated=%+v", p)
	}

	var posts []domain.Post
	runJSON(t, url, &posts, "list", "-page", "0", "-size", "5")
	if len(posts) != 1 || posts[0].ID != 1 {
		t.Fatalf("list=%+v", posts)
	}

	runJSON(t, url, nil, "delete", "-id", "1")

	err := run([]string{"-server", url, "get", "-id", "1"}, io.Discard)
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("get after delete err=%v want ErrNotFound", err)
	}
}

func TestRun_ListWithOnlySizeReturnsAll(t *testing.T) {
	url := newAPI(t)
	for _, a := range []string{"a", "b", "c"} {
		runJSON(t, url, nil, "create", "-author", a)
	}

	var posts []domain.Post
	runJSON(t, url, &posts, "list", "-size", "2")
	if len(posts) != 3 {
		t.Fatalf("len=%d want=3", len(posts))
	}

	runJSON(t, url, &posts, "list", "-page", "1", "-size", "2")
	if len(posts) != 1 || posts[0].ID != 3 {
		t.Fatalf("page 1=%+v", posts)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	url := newAPI(t)
	for _, args := range [][]string{
		{},
		{"frobnicate"},
		{"get"},
		{"patch", "-content", "x"},
	} {
		if err := run(append([]string{"-server", url}, args...), io.Discard); err == nil {
			t.Fatalf("postctl %v: expected error", args)
		}
	}
}
