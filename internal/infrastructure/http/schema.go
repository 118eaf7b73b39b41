package httpapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const createTransactionSchema = `{
  "type": "object",
  "required": ["amount", "currency", "reference", "checkoutPage"],
  "properties": {
    "amount": {"type": ["number", "string"]},
    "currency": {"type": "string", "minLength": 3, "maxLength": 5},
    "reference": {"type": "string", "minLength": 1, "maxLength": 255},
    "metadata": {"type": "object", "additionalProperties": {"type": "string"}},
    "expiresAt": {"type": "string", "format": "date-time"},
    "checkoutPage": {
      "type": "object",
      "required": ["themeId", "title"],
      "properties": {
        "themeId": {"type": "string", "minLength": 1},
        "title": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "logo": {"type": "string"},
        "colors": {"type": "object"},
        "items": {"type": "array"},
        "contact": {"type": "object"},
        "settings": {"type": "object"},
        "customTexts": {"type": "object"}
      }
    }
  }
}`

const submitCardSchema = `{
  "type": "object",
  "required": ["provider", "holderName", "cardNumber", "month", "year", "cvv"],
  "properties": {
    "provider": {"type": "string", "enum": ["visa", "mastercard", "amex"]},
    "holderName": {"type": "string", "minLength": 1, "maxLength": 128},
    "cardNumber": {"type": "string", "pattern": "^[0-9 ]{12,23}$"},
    "month": {"type": "integer", "minimum": 1, "maximum": 12},
    "year": {"type": "integer", "minimum": 2000, "maximum": 2199},
    "cvv": {"type": "string", "pattern": "^[0-9]{3,4}$"}
  }
}`

var (
	createTransactionLoader = gojsonschema.NewStringLoader(createTransactionSchema)
	submitCardLoader        = gojsonschema.NewStringLoader(submitCardSchema)
)

// requestError is a malformed request body; its message is safe to return.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func validateBody(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &requestError{msg: "Request body is not valid JSON."}
	}
	if !result.Valid() {
		parts := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			parts = append(parts, e.String())
		}
		return &requestError{msg: fmt.Sprintf("Invalid request: %s.", strings.Join(parts, "; "))}
	}
	return nil
}
