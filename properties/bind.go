package properties

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared across binds; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their binding tag names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})
	return v
}

// Bind unmarshals the configuration subtree at key onto target, which
// must be a non-nil pointer. Struct targets are then checked against
// their `validate` tags. An empty key binds the whole configuration.
//
// Field matching follows mapstructure rules: tags first, otherwise
// case-insensitive field names, so `city.name` binds to a Name field
// under the "city" prefix without any tags.
func (s *Source) Bind(key string, target any) error {
	if target == nil {
		return errors.New("properties: bind target is nil")
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("properties: bind target must be a non-nil pointer, got %T", target)
	}

	var err error
	if key == "" {
		err = s.v.Unmarshal(target)
	} else {
		err = s.v.UnmarshalKey(key, target)
	}
	if err != nil {
		return fmt.Errorf("properties: bind %q onto %T: %w", key, target, err)
	}

	if rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("properties: %q: %s", key, formatValidationErrors(key, verrs))
		}
		return fmt.Errorf("properties: validate %q: %w", key, err)
	}
	return nil
}

// formatValidationErrors renders validator failures with full property
// paths so the offending configuration key is obvious.
func formatValidationErrors(prefix string, verrs validator.ValidationErrors) string {
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = strings.ToLower(fe.StructField())
		}
		if prefix != "" {
			field = prefix + "." + field
		}
		switch fe.Tag() {
		case "required":
			msgs[i] = fmt.Sprintf("%s is required", field)
		case "min":
			msgs[i] = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max":
			msgs[i] = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		case "oneof":
			msgs[i] = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		case "url":
			msgs[i] = fmt.Sprintf("%s must be a valid URL", field)
		case "hostname_port":
			msgs[i] = fmt.Sprintf("%s must be a valid host:port", field)
		default:
			msgs[i] = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}
