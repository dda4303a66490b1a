// Package codec converts request and response bodies between bytes and
// Go values, keyed by MIME type. A Registry holds the codecs an
// application serves and picks one per request from the Content-Type
// and Accept headers.
package codec

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
)

// MIME types handled by the built-in codecs.
const (
	MimeJSON = "application/json"
	MimeXML  = "application/xml"
	MimeText = "text/plain"
	MimeForm = "application/x-www-form-urlencoded"
)

// Codec encodes and decodes one media type. Implementations must be
// safe for concurrent use.
type Codec interface {
	// MimeType returns the canonical media type without parameters.
	MimeType() string

	// Encode renders v as a body.
	Encode(v any) ([]byte, error)

	// Decode parses a body into v, which must be a pointer.
	Decode(data []byte, v any) error
}

// JSON is the application/json codec.
type JSON struct {
	// Indent pretty-prints responses when set.
	Indent string
}

func (JSON) MimeType() string { return MimeJSON }

func (c JSON) Encode(v any) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

func (JSON) Decode(data []byte, v any) error {
	if len(data) == 0 {
		return errors.New("codec: empty json body")
	}
	return json.Unmarshal(data, v)
}

// XML is the application/xml codec.
type XML struct{}

func (XML) MimeType() string { return MimeXML }

func (XML) Encode(v any) ([]byte, error) {
	return xml.Marshal(v)
}

func (XML) Decode(data []byte, v any) error {
	if len(data) == 0 {
		return errors.New("codec: empty xml body")
	}
	return xml.Unmarshal(data, v)
}

// Text is the text/plain codec. It encodes strings, byte slices, and
// anything fmt can print; it decodes into *string or *[]byte.
type Text struct{}

func (Text) MimeType() string { return MimeText }

func (Text) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, errors.New("codec: cannot encode nil as text")
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case error:
		return []byte(t.Error()), nil
	default:
		return []byte(fmt.Sprint(v)), nil
	}
}

func (Text) Decode(data []byte, v any) error {
	switch t := v.(type) {
	case *string:
		*t = string(data)
		return nil
	case *[]byte:
		*t = append((*t)[:0], data...)
		return nil
	default:
		return fmt.Errorf("codec: text decodes into *string or *[]byte, got %T", v)
	}
}
