package ipfs

import (
	"encoding/json"
	"fmt"
)

// APIError is the error body returned by the store's RPC API.
type APIError struct {
	Message string `json:"Message"`
	Code    uint64 `json:"Code"`
	Type    string `json:"Type"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ipfs api: %s (code %d, type %s)", e.Message, e.Code, e.Type)
}

// parseAPIError decodes b strictly: all three fields must be present.
func parseAPIError(b []byte) (*APIError, bool) {
	var raw struct {
		Message *string `json:"Message"`
		Code    *uint64 `json:"Code"`
		Type    *string `json:"Type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, false
	}
	if raw.Message == nil || raw.Type == nil || raw.Code == nil {
		return nil, false
	}
	return &APIError{Message: *raw.Message, Code: *raw.Code, Type: *raw.Type}, true
}
