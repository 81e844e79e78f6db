package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode is returned for channel payloads that cannot be turned into an
// Alert. Decode errors are never fatal to ingestion.
var ErrDecode = errors.New("alert decode error")

// Envelope is the response wrapper the backend uses for every channel
// message and API response.
type Envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *string         `json:"error"`
	Timestamp string          `json:"timestamp"`
}

// UnmarshalJSON normalises the severity spelling so "critical" and
// "Critical" decode to the same value. Unknown names are kept verbatim.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if sev, ok := ParseSeverity(raw); ok {
		*s = sev
		return nil
	}
	*s = Severity(raw)
	return nil
}

// DecodeEnvelope parses a raw channel frame and returns the carried alert.
// The returned error wraps ErrDecode when the frame is malformed, reports
// success=false, or carries no alert.
func DecodeEnvelope(raw []byte) (Alert, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Alert{}, fmt.Errorf("%w: parsing envelope: %v", ErrDecode, err)
	}
	if !env.Success {
		msg := "unknown error"
		if env.Error != nil && *env.Error != "" {
			msg = *env.Error
		}
		return Alert{}, fmt.Errorf("%w: backend reported failure: %s", ErrDecode, msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return Alert{}, fmt.Errorf("%w: envelope has no data", ErrDecode)
	}

	var a Alert
	if err := json.Unmarshal(env.Data, &a); err != nil {
		return Alert{}, fmt.Errorf("%w: parsing alert: %v", ErrDecode, err)
	}
	if a.ID == "" {
		return Alert{}, fmt.Errorf("%w: alert has no id", ErrDecode)
	}
	return a, nil
}
