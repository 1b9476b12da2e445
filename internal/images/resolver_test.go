package images

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

func TestResolverResolve(t *testing.T) {
	resolver := NewResolver()

	tests := []struct {
		name  string
		field domain.ImageField
		want  []string
	}{
		{
			name:  "null field",
			field: domain.ImageField{},
			want:  []string{DefaultPlaceholder},
		},
		{
			name:  "empty string",
			field: domain.ImageText(""),
			want:  []string{DefaultPlaceholder},
		},
		{
			name:  "empty list",
			field: domain.ImageList(),
			want:  []string{DefaultPlaceholder},
		},
		{
			name:  "single url",
			field: domain.ImageText("https://i.imgur.com/a.png"),
			want:  []string{"https://i.imgur.com/a.png"},
		},
		{
			name:  "stringified array drops unapproved host",
			field: domain.ImageText(`["https://i.imgur.com/a.png","https://evil.example/b.png"]`),
			want:  []string{"https://i.imgur.com/a.png"},
		},
		{
			name:  "only unapproved host",
			field: domain.ImageText(`["https://evil.example/b.png"]`),
			want:  []string{DefaultPlaceholder},
		},
		{
			name:  "invalid json falls back to regex",
			field: domain.ImageText(`["https://picsum.photos/200", "https://i.imgur.com/x.jpg"`),
			want:  []string{"https://picsum.photos/200", "https://i.imgur.com/x.jpg"},
		},
		{
			name:  "invalid json without urls",
			field: domain.ImageText("[invalid json"),
			want:  []string{DefaultPlaceholder},
		},
		{
			name:  "list with stray brackets and quotes",
			field: domain.ImageList(`["https://i.imgur.com/1.png"`, `"https://i.imgur.com/2.png"]`),
			want:  []string{"https://i.imgur.com/1.png", "https://i.imgur.com/2.png"},
		},
		{
			name:  "list element that is a stringified array takes first entry",
			field: domain.ImageList(`["https://i.imgur.com/1.png","https://i.imgur.com/9.png"]`, "https://picsum.photos/1"),
			want:  []string{"https://i.imgur.com/1.png", "https://picsum.photos/1"},
		},
		{
			name:  "list discards non http entries",
			field: domain.ImageList("", "ftp://i.imgur.com/a.png", "not a url", "https://content.r9cdn.net/x.jpg"),
			want:  []string{"https://content.r9cdn.net/x.jpg"},
		},
		{
			name:  "hostname match is exact",
			field: domain.ImageText("https://i.imgur.com.evil.example/a.png"),
			want:  []string{DefaultPlaceholder},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := resolver.Resolve(tc.field)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Resolve() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolverNeverEmptyForMalformedJSON(t *testing.T) {
	resolver := NewResolver(WithPlaceholder("/img/none.svg"))
	payloads := []string{`null`, `""`, `"[invalid json"`, `[1, 2, {"a": 1}]`, `{"url":"https://i.imgur.com/a.png"}`, `42`, `[null, true]`}

	for _, payload := range payloads {
		var field domain.ImageField
		if err := json.Unmarshal([]byte(payload), &field); err != nil {
			t.Fatalf("unmarshal %s: %v", payload, err)
		}
		got := resolver.Resolve(field)
		if len(got) == 0 {
			t.Fatalf("Resolve(%s) returned empty list", payload)
		}
		for _, entry := range got {
			if entry != "/img/none.svg" {
				t.Fatalf("Resolve(%s) = %v, expected only placeholder", payload, got)
			}
		}
	}
}

func TestResolverCustomAllowList(t *testing.T) {
	resolver := NewResolver(WithAllowedHosts("cdn.shop.test"))

	got := resolver.Resolve(domain.ImageList("https://cdn.shop.test/a.png", "https://i.imgur.com/a.png"))
	if !reflect.DeepEqual(got, []string{"https://cdn.shop.test/a.png"}) {
		t.Fatalf("unexpected resolution %v", got)
	}
	if first := resolver.First(domain.ImageField{}); first != DefaultPlaceholder {
		t.Fatalf("expected placeholder, got %q", first)
	}
}
