package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const maxBodyBytes = 64 * 1024

// ErrUnsupportedMediaType is returned by DecodeForm for bodies that are neither JSON nor form encoded.
var ErrUnsupportedMediaType = errors.New("httpx: unsupported media type")

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// DecodeForm reads a JSON object or a urlencoded form body into flat string values so handlers can
// accept both fetch-style and classic form submissions.
func DecodeForm(r *http.Request) (url.Values, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType := ""
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, ErrUnsupportedMediaType
		}
		mediaType = parsed
	}

	switch mediaType {
	case "application/json":
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		values := url.Values{}
		if len(strings.TrimSpace(string(body))) == 0 {
			return values, nil
		}
		var raw map[string]any
		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("httpx: invalid json body: %w", err)
		}
		for key, value := range raw {
			switch v := value.(type) {
			case nil:
			case string:
				values.Set(key, v)
			case json.Number:
				values.Set(key, v.String())
			default:
				values.Set(key, fmt.Sprint(v))
			}
		}
		return values, nil
	case "", "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	default:
		return nil, ErrUnsupportedMediaType
	}
}
