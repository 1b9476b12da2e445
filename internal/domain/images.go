package domain

import (
	"bytes"
	"encoding/json"
)

// ImageKind discriminates the encodings an image field may arrive in.
type ImageKind int

const (
	// ImageKindNone means the field was null or absent.
	ImageKindNone ImageKind = iota
	// ImageKindText is a single string, possibly a stringified JSON array.
	ImageKindText
	// ImageKindList is an array of strings.
	ImageKindList
)

// ImageField is the raw, untrusted image payload of a product.
type ImageField struct {
	Kind ImageKind
	Text string
	List []string
}

// ImageText builds a single-string image field.
func ImageText(s string) ImageField {
	return ImageField{Kind: ImageKindText, Text: s}
}

// ImageList builds an array image field.
func ImageList(items ...string) ImageField {
	return ImageField{Kind: ImageKindList, List: items}
}

// Empty reports whether the field carries nothing usable.
func (f ImageField) Empty() bool {
	switch f.Kind {
	case ImageKindText:
		return f.Text == ""
	case ImageKindList:
		return len(f.List) == 0
	default:
		return true
	}
}

// UnmarshalJSON never fails on unexpected shapes; they decode to an empty field.
func (f *ImageField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*f = ImageField{}
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			*f = ImageText(s)
		}
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil
		}
		items := make([]string, 0, len(raw))
		for _, entry := range raw {
			var s string
			if err := json.Unmarshal(entry, &s); err != nil {
				s = ""
			}
			items = append(items, s)
		}
		*f = ImageList(items...)
	}
	return nil
}

// MarshalJSON renders the field back in its original shape.
func (f ImageField) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case ImageKindText:
		return json.Marshal(f.Text)
	case ImageKindList:
		if f.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(f.List)
	default:
		return []byte("null"), nil
	}
}
