package codec

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// Form is the application/x-www-form-urlencoded codec. Struct decoding
// honors `form` tags and converts strings onto numeric and bool fields.
type Form struct{}

func (Form) MimeType() string { return MimeForm }

// Encode accepts url.Values and string maps; anything else is an error
// since form bodies have no natural rendering for nested values.
func (Form) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case url.Values:
		return []byte(t.Encode()), nil
	case map[string][]string:
		return []byte(url.Values(t).Encode()), nil
	case map[string]string:
		vals := make(url.Values, len(t))
		for k, val := range t {
			vals.Set(k, val)
		}
		return []byte(vals.Encode()), nil
	default:
		return nil, fmt.Errorf("codec: cannot encode %T as form data", v)
	}
}

func (Form) Decode(data []byte, v any) error {
	vals, err := url.ParseQuery(string(data))
	if err != nil {
		return fmt.Errorf("codec: parse form: %w", err)
	}

	switch t := v.(type) {
	case *url.Values:
		*t = vals
		return nil
	case *map[string]string:
		m := make(map[string]string, len(vals))
		for k := range vals {
			m[k] = vals.Get(k)
		}
		*t = m
		return nil
	}

	// Struct targets: flatten single values so "name=x" decodes onto a
	// plain string field while repeated keys stay slices.
	flat := make(map[string]any, len(vals))
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if vs := vals[k]; len(vs) == 1 {
			flat[k] = vs[0]
		} else {
			flat[k] = vs
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "form",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("codec: form decoder: %w", err)
	}
	if err := dec.Decode(flat); err != nil {
		return fmt.Errorf("codec: decode form: %w", err)
	}
	return nil
}
