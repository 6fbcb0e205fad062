package store

import (
	"encoding/json"
	"fmt"
)

// project encodes only the named top-level JSON fields of state.
func project[S any](state S, fields []string) (string, error) {
	full, err := fieldsOf(state)
	if err != nil {
		return "", err
	}
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			out[f] = v
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// overlay decodes raw onto state, ignoring any field not named in fields.
func overlay[S any](state *S, raw string, fields []string) error {
	var stored map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("decode projection: %w", err)
	}
	picked := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := stored[f]; ok {
			picked[f] = v
		}
	}
	if len(picked) == 0 {
		return nil
	}
	data, err := json.Marshal(picked)
	if err != nil {
		return err
	}

	// Decode into a copy so a type mismatch leaves state untouched.
	next := *state
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("apply projection: %w", err)
	}
	*state = next
	return nil
}

func fieldsOf(v any) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("state must encode as a JSON object: %w", err)
	}
	return m, nil
}
