// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Card and transaction bodies may arrive as JSON or as form-encoded data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cardledger/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 64 << 10

// BadRequestError reports a request the server could not read at all, as
// opposed to a readable request with invalid values.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return "bad request: " + e.Reason }

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = &BadRequestError{Reason: "body too large"}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		var bre *BadRequestError
		if !errors.As(p.err, &bre) {
			p.err = &BadRequestError{Reason: p.err.Error()}
		}
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.Contains(p.contentType, "json") {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		data := make(map[string]any)
		if err := dec.Decode(&data); err != nil {
			p.err = &BadRequestError{Reason: "malformed JSON body"}
			return p.err
		}
		p.jsonData = data
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = &BadRequestError{Reason: "malformed form body"}
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Has reports whether key was present in the body, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads and parses the request body, mapping read failures to
// BadRequestError.
func parseBody(r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p, nil
}

// pathID parses the named path wildcard as a uuid.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &BadRequestError{Reason: fmt.Sprintf("%s %q is not a valid id", name, raw)}
	}
	return id, nil
}

func intField(p *RequestBodyParser, key string) (int64, error) {
	v := p.Get(key)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &core.ValidationError{Field: key, Reason: fmt.Sprintf("%q is not a whole number", v)}
	}
	return n, nil
}

func colorField(p *RequestBodyParser) ([]byte, error) {
	v := p.Get("color")
	if v == "" {
		return nil, nil
	}
	c, err := core.ParseHexColor(v)
	if err != nil {
		return nil, &core.ValidationError{Field: "color", Reason: err.Error()}
	}
	return core.EncodeColor(c), nil
}

// ParseCardFields reads a full card from the body. Missing numeric fields
// are reported as validation errors.
func ParseCardFields(p *RequestBodyParser) (core.CardFields, error) {
	f := core.CardFields{
		Name:   p.Get("name"),
		Number: p.Get("number"),
		Type:   core.CardType(p.Get("type")),
	}

	limit, err := intField(p, "limit")
	if err != nil {
		return core.CardFields{}, err
	}
	month, err := intField(p, "expMonth")
	if err != nil {
		return core.CardFields{}, err
	}
	year, err := intField(p, "expYear")
	if err != nil {
		return core.CardFields{}, err
	}
	color, err := colorField(p)
	if err != nil {
		return core.CardFields{}, err
	}

	f.Limit = limit
	f.ExpMonth = int(month)
	f.ExpYear = int(year)
	f.Color = color
	return f, nil
}

// ParseCardPatch reads the fields present in the body. An empty color
// resets the card to the default color.
func ParseCardPatch(p *RequestBodyParser) (core.CardPatch, error) {
	var patch core.CardPatch

	if p.Has("name") {
		v := p.Get("name")
		patch.Name = &v
	}
	if p.Has("number") {
		v := p.Get("number")
		patch.Number = &v
	}
	if p.Has("type") {
		v := core.CardType(p.Get("type"))
		patch.Type = &v
	}
	if p.Has("limit") {
		v, err := intField(p, "limit")
		if err != nil {
			return core.CardPatch{}, err
		}
		patch.Limit = &v
	}
	if p.Has("expMonth") {
		v, err := intField(p, "expMonth")
		if err != nil {
			return core.CardPatch{}, err
		}
		m := int(v)
		patch.ExpMonth = &m
	}
	if p.Has("expYear") {
		v, err := intField(p, "expYear")
		if err != nil {
			return core.CardPatch{}, err
		}
		y := int(v)
		patch.ExpYear = &y
	}
	if p.Has("color") {
		v, err := colorField(p)
		if err != nil {
			return core.CardPatch{}, err
		}
		patch.Color = &v
	}
	return patch, nil
}

// ParseAmountField reads a signed, non-zero amount below core.MaxAmount.
func ParseAmountField(p *RequestBodyParser) (decimal.Decimal, error) {
	raw := p.Get("amount")
	d, err := core.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a non-zero amount below %s", raw, core.MaxAmount.String())}
	}
	return d, nil
}
