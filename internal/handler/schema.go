package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// maxBodyBytes caps request bodies read for validation.
const maxBodyBytes = 64 << 10

// Schema names, one per embedded file.
const (
	schemaRegister          = "register"
	schemaLogin             = "login"
	schemaRefresh           = "refresh"
	schemaReservationCreate = "reservation_create"
	schemaReservationUpdate = "reservation_update"
)

// schemas is compiled once at package init; a broken embedded schema is a
// programming error.
var schemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	for _, e := range entries {
		data, err := schemaFiles.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			panic(err)
		}
		if err := compiler.AddResource(e.Name(), bytes.NewReader(data)); err != nil {
			panic(fmt.Sprintf("schema %s: %v", e.Name(), err))
		}
	}
	out := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		s, err := compiler.Compile(e.Name())
		if err != nil {
			panic(fmt.Sprintf("schema %s: %v", e.Name(), err))
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = s
	}
	return out
}

// fieldError is one schema violation in a 400 response.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// bodyError is returned by bindValid; it renders as a 400.
type bodyError struct {
	msg    string
	fields []fieldError
}

func (e *bodyError) Error() string { return e.msg }

// bindValid reads the request body, validates it against the named schema
// and only then decodes it into dst.
func bindValid(c echo.Context, schema string, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return &bodyError{msg: "cannot read body"}
	}
	if len(raw) > maxBodyBytes {
		return &bodyError{msg: "body too large"}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &bodyError{msg: "body required"}
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &bodyError{msg: "invalid JSON"}
	}
	if err := schemas[schema].Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &bodyError{msg: "invalid request body", fields: flattenSchemaErrors(ve, nil)}
		}
		return &bodyError{msg: err.Error()}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &bodyError{msg: "invalid request body"}
	}
	return nil
}

// flattenSchemaErrors collects the leaf causes with their field paths.
func flattenSchemaErrors(ve *jsonschema.ValidationError, out []fieldError) []fieldError {
	if len(ve.Causes) == 0 {
		field := strings.ReplaceAll(strings.TrimPrefix(ve.InstanceLocation, "/"), "/", ".")
		return append(out, fieldError{Field: field, Message: ve.Message})
	}
	for _, cause := range ve.Causes {
		out = flattenSchemaErrors(cause, out)
	}
	return out
}

func writeBodyError(c echo.Context, err error) error {
	var be *bodyError
	if errors.As(err, &be) {
		body := echo.Map{"error": be.msg}
		if len(be.fields) > 0 {
			body["details"] = be.fields
		}
		return c.JSON(http.StatusBadRequest, body)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}
