// Package message resolves localized messages from .properties bundles,
// the way classic resource bundles work: a basename plus locale-suffixed
// files, best-match locale selection, and positional {0} placeholders.
//
// A bundle directory looks like:
//
//	messages/
//	  messages.properties        fallback for every locale
//	  messages_en.properties
//	  messages_fr.properties
//	  messages_fr_CA.properties
//
// Bundles can watch their directory and swap the loaded catalog
// atomically when files change.
package message

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magiconair/properties"
	"golang.org/x/text/language"
)

// Source resolves a message code for a locale. Implementations must be
// safe for concurrent use.
type Source interface {
	// Message returns the resolved message with {0}-style placeholders
	// substituted by args. Unknown codes return an error.
	Message(code string, locale language.Tag, args ...any) (string, error)
}

// builtin holds the framework's own messages, always available as the
// last fallback layer.
//
//go:embed messages.properties
var builtin []byte

// catalog is one immutable load of all bundle files.
type catalog struct {
	tags     []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]map[string]string
	fallback map[string]string
}

// loadCatalog reads every basename*.properties file under dir and the
// embedded defaults. A missing directory yields just the defaults.
func loadCatalog(dir, basename string) (*catalog, error) {
	c := &catalog{
		messages: make(map[language.Tag]map[string]string),
		fallback: make(map[string]string),
	}

	defaults, err := parseProperties(builtin)
	if err != nil {
		return nil, fmt.Errorf("message: embedded defaults: %w", err)
	}
	for k, v := range defaults {
		c.fallback[k] = v
	}

	if dir != "" {
		if err := c.loadDir(dir, basename); err != nil {
			return nil, err
		}
	}

	// The fallback layer participates in matching as the undetermined
	// tag so unmatched locales land on it.
	c.tags = append([]language.Tag{language.Und}, sortedTags(c.messages)...)
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func (c *catalog) loadDir(dir, basename string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("message: read bundle dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, basename) || !strings.HasSuffix(name, ".properties") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("message: read %s: %w", name, err)
		}
		msgs, err := parseProperties(data)
		if err != nil {
			return fmt.Errorf("message: parse %s: %w", name, err)
		}

		suffix := strings.TrimSuffix(strings.TrimPrefix(name, basename), ".properties")
		if suffix == "" {
			for k, v := range msgs {
				c.fallback[k] = v
			}
			continue
		}

		tag, err := language.Parse(strings.ReplaceAll(strings.TrimPrefix(suffix, "_"), "_", "-"))
		if err != nil {
			return fmt.Errorf("message: %s: bad locale suffix %q: %w", name, suffix, err)
		}
		if c.messages[tag] == nil {
			c.messages[tag] = make(map[string]string)
		}
		for k, v := range msgs {
			c.messages[tag][k] = v
		}
	}
	return nil
}

// resolve looks the code up for the best matching locale, walking the
// tag's parent chain before the default layer, the way resource bundles
// do (fr-CA, then fr, then the suffixless file).
func (c *catalog) resolve(code string, locale language.Tag) (string, bool) {
	if locale != language.Und {
		if _, idx, conf := c.matcher.Match(locale); conf > language.No && idx > 0 {
			for tag := c.tags[idx]; tag != language.Und; tag = tag.Parent() {
				if msg, ok := c.messages[tag][code]; ok {
					return msg, true
				}
			}
		}
	}
	msg, ok := c.fallback[code]
	return msg, ok
}

func parseProperties(data []byte) (map[string]string, error) {
	p, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, p.Len())
	for _, key := range p.Keys() {
		out[key], _ = p.Get(key)
	}
	return out, nil
}

func sortedTags(m map[language.Tag]map[string]string) []language.Tag {
	tags := make([]language.Tag, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	// Deterministic matcher order keeps resolution stable across loads.
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j].String() < tags[j-1].String(); j-- {
			tags[j], tags[j-1] = tags[j-1], tags[j]
		}
	}
	return tags
}

// format substitutes {0}, {1}, ... with the stringified args.
func format(msg string, args []any) string {
	if len(args) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(args)*2)
	for i, arg := range args {
		pairs = append(pairs, fmt.Sprintf("{%d}", i), fmt.Sprint(arg))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
