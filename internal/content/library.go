// Package content serves the static markdown pages of the storefront.
package content

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Slugs of the bundled pages.
const (
	SlugShippingPolicy = "shipping-policy"
	SlugAboutUs        = "aboutus"
)

const defaultCacheTTL = 5 * time.Minute

// ErrNotFound is returned for unknown slugs.
var ErrNotFound = errors.New("content: page not found")

//go:embed pages/*.md
var bundled embed.FS

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Page is a rendered content page.
type Page struct {
	Slug      string        `json:"slug"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary,omitempty"`
	HTML      template.HTML `json:"html"`
	UpdatedAt time.Time     `json:"updatedAt,omitempty"`
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Library loads, renders and caches pages.
type Library struct {
	fsys     fs.FS
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	ttl      time.Duration
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option customises a Library.
type Option func(*Library)

// WithDir reads pages from dir instead of the bundled set.
func WithDir(dir string) Option {
	return func(l *Library) {
		if dir = strings.TrimSpace(dir); dir != "" {
			l.fsys = os.DirFS(dir)
		}
	}
}

// WithFS reads pages from fsys.
func WithFS(fsys fs.FS) Option {
	return func(l *Library) {
		if fsys != nil {
			l.fsys = fsys
		}
	}
}

// WithCacheTTL sets how long rendered pages are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(l *Library) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithClock overrides the cache clock.
func WithClock(clock func() time.Time) Option {
	return func(l *Library) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithLogger sets the logging hook.
func WithLogger(logger func(context.Context, string, map[string]any)) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLibrary builds a Library over the bundled pages unless overridden.
func NewLibrary(opts ...Option) *Library {
	sub, _ := fs.Sub(bundled, "pages")
	l := &Library{
		fsys:     sub,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   newPagePolicy(),
		ttl:      defaultCacheTTL,
		clock:    time.Now,
		logger:   func(context.Context, string, map[string]any) {},
		cache:    map[string]cacheEntry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func newPagePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// Page returns the rendered page for slug.
func (l *Library) Page(ctx context.Context, slug string) (Page, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return Page{}, ErrNotFound
	}

	now := l.clock()
	l.mu.RLock()
	entry, ok := l.cache[slug]
	l.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.page, nil
	}

	page, err := l.load(slug)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.logger(ctx, "content.load_failed", map[string]any{"slug": slug, "error": err.Error()})
		}
		return Page{}, err
	}

	l.mu.Lock()
	l.cache[slug] = cacheEntry{page: page, expires: now.Add(l.ttl)}
	l.mu.Unlock()
	return page, nil
}

// Invalidate drops every cached page.
func (l *Library) Invalidate() {
	l.mu.Lock()
	l.cache = map[string]cacheEntry{}
	l.mu.Unlock()
}

func (l *Library) load(slug string) (Page, error) {
	data, err := fs.ReadFile(l.fsys, slug+".md")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("content: read %s: %w", slug, err)
	}

	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", slug, err)
		}
	}

	var rendered bytes.Buffer
	if err := l.markdown.Convert([]byte(body), &rendered); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", slug, err)
	}

	title := strings.TrimSpace(front.Title)
	if title == "" {
		title = prettifySlug(slug)
	}
	return Page{
		Slug:      slug,
		Title:     title,
		Summary:   strings.TrimSpace(front.Summary),
		HTML:      template.HTML(l.policy.SanitizeBytes(rendered.Bytes())),
		UpdatedAt: parseDate(front.UpdatedAt),
	}, nil
}

var layout = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} | ShopSmart</title>
{{- if .Summary}}
<meta name="description" content="{{.Summary}}">
{{- end}}
</head>
<body>
<main class="content-page" data-slug="{{.Slug}}">
<h1>{{.Title}}</h1>
{{.HTML}}
{{- if not .UpdatedAt.IsZero}}
<p class="updated">Last updated {{.UpdatedAt.Format "January 2, 2006"}}</p>
{{- end}}
</main>
</body>
</html>
`))

// Render writes page as a complete HTML document.
func Render(w io.Writer, page Page) error {
	return layout.Execute(w, page)
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, format := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(format, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part != "" {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}
