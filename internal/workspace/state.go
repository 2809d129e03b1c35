package workspace

import (
	"encoding/json"
	"time"

	"github.com/ojashyadav101/lucy/internal/errkind"
)

const stateFile = "state.json"

// ReadState loads and parses state.json, returning an empty map if it does
// not yet exist.
func (s *Store) ReadState() (map[string]any, error) {
	raw, ok, err := s.Read(stateFile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]any{}, nil
	}
	var state map[string]any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, errkind.Wrap(errkind.IOError, "parse state.json", err)
	}
	if state == nil {
		state = map[string]any{}
	}
	return state, nil
}

// UpdateState merges updates into state.json, stamps updated_at, and writes
// the result atomically.
func (s *Store) UpdateState(updates map[string]any) (map[string]any, error) {
	state, err := s.ReadState()
	if err != nil {
		return nil, err
	}
	for k, v := range updates {
		state[k] = v
	}
	state["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errkind.Wrap(errkind.IOError, "encode state.json", err)
	}
	if err := s.Write(stateFile, string(encoded)); err != nil {
		return nil, err
	}
	return state, nil
}
