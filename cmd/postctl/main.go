package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/garcia/facebook-api/internal/client"
	"github.com/garcia/facebook-api/internal/domain"
)

const usage = `usage: postctl [-server URL] <command> [flags]

commands:
  create  -author -content -image     create a post
  list    [-page N -size N]           list posts, optionally one page
  get     -id N                       show a post
  update  -id N -author -content -image
                                      replace a post; omitted fields become null
  patch   -id N [-author] [-content] [-image]
                                      change only the given fields
  delete  -id N                       delete a post
  watch                               print change events until interrupted
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("postctl", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	server := global.String("server", envOrDefault("POSTS_API_URL", "http://localhost:8080"), "Posts API base URL")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	c := client.NewClient(*server, logger)

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "create":
		fs, fields := postFlags(cmd)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		post, err := c.CreatePost(ctx, fields.values(fs))
		if err != nil {
			return err
		}
		return printJSON(out, post)

	case "list":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		page := fs.Int("page", 0, "Zero-based page index")
		size := fs.Int("size", 0, "Page size")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		// Paging needs both flags; the server lists everything otherwise.
		set := make(map[string]bool)
		fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
		var pr *domain.PageRequest
		if set["page"] && set["size"] {
			pr = &domain.PageRequest{Page: *page, Size: *size}
		}
		posts, err := c.ListPosts(ctx, pr)
		if err != nil {
			return err
		}
		return printJSON(out, posts)

	case "get", "delete":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		id := fs.Int64("id", 0, "Post ID")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("%s: -id is required", cmd)
		}
		if cmd == "delete" {
			if err := c.DeletePost(ctx, *id); err != nil {
				return err
			}
			fmt.Fprintf(out, "Post %d deleted\n", *id)
			return nil
		}
		post, err := c.GetPost(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(out, post)

	case "update", "patch":
		fs, fields := postFlags(cmd)
		id := fs.Int64("id", 0, "Post ID")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("%s: -id is required", cmd)
		}
		var (
			post domain.Post
			err  error
		)
		if cmd == "update" {
			post, err = c.ReplacePost(ctx, *id, fields.values(fs))
		} else {
			f := fields.values(fs)
			post, err = c.PatchPost(ctx, *id, domain.PostPatch{Author: f.Author, Content: f.Content, ImageURL: f.ImageURL})
		}
		if err != nil {
			return err
		}
		return printJSON(out, post)

	case "watch":
		fmt.Fprintf(os.Stderr, "Watching %s for post changes...\n", *server)
		err := c.Watch(ctx, func(e domain.PostEvent) {
			if err := printJSON(out, e); err != nil {
				logger.Error("print event", "error", err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type postFieldFlags struct {
	author, content, image *string
}

func postFlags(name string) (*flag.FlagSet, postFieldFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return fs, postFieldFlags{
		author:  fs.String("author", "", "Post author"),
		content: fs.String("content", "", "Post text"),
		image:   fs.String("image", "", "Image URL"),
	}
}

// values returns the flags as post fields. A flag not given on the command
// line yields nil rather than "".
func (f postFieldFlags) values(fs *flag.FlagSet) domain.PostFields {
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	pick := func(name string, v *string) *string {
		if !set[name] {
			return nil
		}
		s := *v
		return &s
	}
	return domain.PostFields{
		Author:   pick("author", f.author),
		Content:  pick("content", f.content),
		ImageURL: pick("image", f.image),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
