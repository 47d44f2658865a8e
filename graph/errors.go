package graph

import (
	"encoding/json"
	"fmt"
)

// APIError is the remote error envelope: {"error": {"message": ...}}.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code,omitempty"`
	Subcode int    `json:"error_subcode,omitempty"`
	TraceId string `json:"fbtrace_id,omitempty"`
	Status  int    `json:"-"`
	Raw     []byte `json:"-"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("remote API error (%s, code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("remote API error: %s", e.Message)
}

// parseEnvelope returns the error envelope in body, if any.
func parseEnvelope(body []byte) *APIError {
	var env struct {
		Error *json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return nil
	}
	apiErr := &APIError{Raw: body}
	if err := json.Unmarshal(*env.Error, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = string(*env.Error)
	}
	return apiErr
}
