package images

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

const (
	// DefaultPlaceholder is rendered when no approved image is available.
	DefaultPlaceholder = "/placeholder.png"
)

// DefaultAllowedHosts lists the CDN hostnames approved for product imagery.
var DefaultAllowedHosts = []string{"i.imgur.com", "content.r9cdn.net", "picsum.photos"}

var urlPattern = regexp.MustCompile(`https?://[^"\s,\]]+`)

// Resolver turns untrusted image fields into display URLs.
type Resolver struct {
	placeholder string
	allowed     map[string]struct{}
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithPlaceholder overrides the fallback image.
func WithPlaceholder(placeholder string) Option {
	return func(r *Resolver) {
		if trimmed := strings.TrimSpace(placeholder); trimmed != "" {
			r.placeholder = trimmed
		}
	}
}

// WithAllowedHosts replaces the approved hostname set. An empty list keeps the defaults.
func WithAllowedHosts(hosts ...string) Option {
	return func(r *Resolver) {
		allowed := make(map[string]struct{}, len(hosts))
		for _, host := range hosts {
			host = strings.ToLower(strings.TrimSpace(host))
			if host != "" {
				allowed[host] = struct{}{}
			}
		}
		if len(allowed) > 0 {
			r.allowed = allowed
		}
	}
}

// NewResolver builds a Resolver using the default allow-list and placeholder unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{placeholder: DefaultPlaceholder}
	WithAllowedHosts(DefaultAllowedHosts...)(r)
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Placeholder returns the fallback image path.
func (r *Resolver) Placeholder() string {
	return r.placeholder
}

// Resolve returns a non-empty ordered list containing only allow-listed URLs or the placeholder.
func (r *Resolver) Resolve(field domain.ImageField) (out []string) {
	defer func() {
		if recover() != nil || len(out) == 0 {
			out = []string{r.placeholder}
		}
	}()

	if field.Empty() {
		return nil
	}

	var candidates []string
	switch field.Kind {
	case domain.ImageKindText:
		candidates = extractText(field.Text)
	case domain.ImageKindList:
		candidates = extractList(field.List)
	}

	out = make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if r.approved(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// First returns the primary display image.
func (r *Resolver) First(field domain.ImageField) string {
	return r.Resolve(field)[0]
}

func (r *Resolver) approved(raw string) bool {
	if !strings.HasPrefix(raw, "http") {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	_, ok := r.allowed[strings.ToLower(parsed.Hostname())]
	return ok
}

func extractText(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		return unwrapArray(trimmed)
	}
	return []string{trimmed}
}

func extractList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if strings.HasPrefix(trimmed, "[") {
			if nested := unwrapArray(trimmed); len(nested) > 0 {
				trimmed = nested[0]
			} else {
				trimmed = ""
			}
		} else {
			trimmed = strings.TrimSpace(strings.NewReplacer("[", "", "]", "", `"`, "").Replace(trimmed))
		}
		if strings.HasPrefix(trimmed, "http") {
			out = append(out, trimmed)
		}
	}
	return out
}

// unwrapArray decodes a stringified JSON array, recursing into nested stringified arrays, and
// falls back to scanning for URLs when the text is not valid JSON.
func unwrapArray(text string) []string {
	var decoded []any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return urlPattern.FindAllString(text, -1)
	}
	out := make([]string, 0, len(decoded))
	for _, entry := range decoded {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "[") {
			if nested := unwrapArray(s); len(nested) > 0 {
				out = append(out, nested[0])
			}
			continue
		}
		if strings.HasPrefix(s, "http") {
			out = append(out, s)
		}
	}
	return out
}
