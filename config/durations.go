package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnmarshalJSON accepts the timeout as a duration string ("5s") or integer
// nanoseconds.
func (c *NATSConfig) UnmarshalJSON(data []byte) error {
	type Alias NATSConfig

	aux := &struct {
		Timeout json.RawMessage `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Timeout) > 0 {
		timeout, err := parseDurationField(aux.Timeout, "timeout")
		if err != nil {
			return err
		}
		c.Timeout = timeout
	}
	return nil
}

// UnmarshalJSON accepts the interval as a duration string ("15m") or integer
// nanoseconds.
func (c *RefreshConfig) UnmarshalJSON(data []byte) error {
	type Alias RefreshConfig

	aux := &struct {
		Interval json.RawMessage `json:"interval,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Interval) > 0 {
		interval, err := parseDurationField(aux.Interval, "interval")
		if err != nil {
			return err
		}
		c.Interval = interval
	}
	return nil
}

// parseDurationField parses a JSON duration that can be either a string
// ("5s", "15m") or integer nanoseconds.
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '5s') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
