package gofu

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/gofu-framework/gofu/codec"
)

// HandlerFunc is the signature shared by all route handlers and
// filters.
type HandlerFunc func(*Context) error

// Context is the request context handed to handlers. It embeds
// fiber.Ctx, so every Fiber method is available, and adds codec-aware
// body handling, message resolution, validation, and request-scoped
// database sessions.
type Context struct {
	*fiber.Ctx
	Logger *slog.Logger

	app    *AppContext
	codecs *codec.Registry
	db     *gorm.DB
}

// App returns the running application context.
func (c *Context) App() *AppContext { return c.app }

// Decode parses the request body into v using the codec matching the
// Content-Type header. A missing header uses the default codec; an
// unknown one yields 415, a malformed body 400.
func (c *Context) Decode(v any) error {
	cd, ok := c.codecs.ForContentType(c.Get(fiber.HeaderContentType))
	if !ok {
		return fiber.NewError(fiber.StatusUnsupportedMediaType,
			"unsupported content type "+c.Get(fiber.HeaderContentType))
	}
	if err := cd.Decode(c.Body(), v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// Respond encodes v with the codec negotiated from the Accept header
// and writes it with the given status. An Accept header no served
// codec satisfies yields 406.
func (c *Context) Respond(status int, v any) error {
	accept := c.Get(fiber.HeaderAccept)
	cd, ok := c.codecs.Negotiate(accept)
	if !ok {
		return fiber.NewError(fiber.StatusNotAcceptable, "no codec satisfies "+accept)
	}
	data, err := cd.Encode(v)
	if err != nil {
		return fmt.Errorf("gofu: encode %s response: %w", cd.MimeType(), err)
	}
	c.Set(fiber.HeaderContentType, cd.MimeType())
	return c.Status(status).Send(data)
}

// OK is Respond with 200.
func (c *Context) OK(v any) error { return c.Respond(fiber.StatusOK, v) }

// Created is Respond with 201.
func (c *Context) Created(v any) error { return c.Respond(fiber.StatusCreated, v) }

// Message resolves a message code against the application bundle,
// using the request's Accept-Language to pick the locale.
func (c *Context) Message(code string, args ...any) (string, error) {
	locale := language.Und
	if header := c.Get(fiber.HeaderAcceptLanguage); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			locale = tags[0]
		}
	}
	return c.app.Messages().Message(code, locale, args...)
}

// Validate checks v against its validate tags, returning a 400 with a
// readable field-by-field message on failure.
func (c *Context) Validate(v any) error {
	if err := ValidateStruct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, FormatValidationError(err))
	}
	return nil
}

// DB returns a database session bound to the request context. The
// session is cached for the rest of the request. Panics when the
// application declares no database; the recovery middleware turns
// that into a 500.
func (c *Context) DB() *gorm.DB {
	if c.db != nil {
		return c.db
	}
	if c.app == nil || c.app.db == nil {
		panic("gofu: no database configured")
	}
	c.db = c.app.db.GetConnection().WithContext(c.UserContext())
	return c.db
}
