// Package apierror provides the error envelopes returned to the POS UI.
// Every 4xx/5xx response goes through here so internal details (stack
// traces, SQL errors, raw upstream bodies) never reach the client.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// NewValidationMsg is a validation envelope with a specific message, used for
// request-level rules that are not tied to a single field.
func NewValidationMsg(msg string, fields map[string]string) *ValidationError {
	if fields == nil {
		fields = map[string]string{}
	}
	return &ValidationError{Detail: msg, Fields: fields}
}

// UpstreamError reports a failure of the retail API. Fields carries whatever
// field-level messages could be extracted from the upstream body. CambioID is
// set when the exchange was already created and only a later step failed.
type UpstreamError struct {
	Detail    string            `json:"detail"`
	Operacion string            `json:"operacion,omitempty"`
	CambioID  string            `json:"cambio_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}
