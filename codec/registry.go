package codec

import (
	"fmt"
	"mime"
	"strings"

	"github.com/munnerz/goautoneg"
)

// Registry holds the codecs an application serves. The first registered
// codec is the default, used when a request accepts anything.
type Registry struct {
	codecs []Codec
	byType map[string]Codec
}

// Defaults returns the codec set applications get when they do not
// declare their own: JSON first, then plain text and form data.
func Defaults() []Codec {
	return []Codec{JSON{}, Text{}, Form{}}
}

// NewRegistry builds a registry from the given codecs, falling back to
// Defaults when none are given. Duplicate MIME types are an error.
func NewRegistry(codecs ...Codec) (*Registry, error) {
	if len(codecs) == 0 {
		codecs = Defaults()
	}
	r := &Registry{byType: make(map[string]Codec, len(codecs))}
	for _, c := range codecs {
		if err := r.add(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(c Codec) error {
	mt := strings.ToLower(strings.TrimSpace(c.MimeType()))
	if mt == "" {
		return fmt.Errorf("codec: %T has an empty MIME type", c)
	}
	if _, exists := r.byType[mt]; exists {
		return fmt.Errorf("codec: duplicate codec for %s", mt)
	}
	r.codecs = append(r.codecs, c)
	r.byType[mt] = c
	return nil
}

// Default returns the codec used when a request expresses no preference.
func (r *Registry) Default() Codec { return r.codecs[0] }

// MimeTypes returns the served media types in registration order.
func (r *Registry) MimeTypes() []string {
	out := make([]string, len(r.codecs))
	for i, c := range r.codecs {
		out[i] = c.MimeType()
	}
	return out
}

// ForContentType selects the codec matching a Content-Type header,
// ignoring parameters such as charset. An empty header selects the
// default codec.
func (r *Registry) ForContentType(header string) (Codec, bool) {
	if strings.TrimSpace(header) == "" {
		return r.Default(), true
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return nil, false
	}
	c, ok := r.byType[mt]
	return c, ok
}

// Negotiate selects the codec for an Accept header, honoring quality
// weights and wildcards. An empty header selects the default codec.
func (r *Registry) Negotiate(accept string) (Codec, bool) {
	if strings.TrimSpace(accept) == "" {
		return r.Default(), true
	}
	chosen := goautoneg.Negotiate(accept, r.MimeTypes())
	if chosen == "" {
		return nil, false
	}
	return r.byType[chosen], true
}
