package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Fact is one quick-facts entry. Key is empty for list-style facts.
type Fact struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// DecodeQuickFacts flattens the quick_facts column. The column is free-form
// JSON: a list of strings, an object of label/value pairs, or a scalar.
// Null and undecodable values yield no facts.
func DecodeQuickFacts(raw json.RawMessage) []Fact {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	switch t := v.(type) {
	case []interface{}:
		facts := make([]Fact, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			facts = append(facts, Fact{Value: scalarString(item)})
		}
		return facts
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		facts := make([]Fact, 0, len(keys))
		for _, k := range keys {
			facts = append(facts, Fact{Key: k, Value: scalarString(t[k])})
		}
		return facts
	default:
		return []Fact{{Value: scalarString(t)}}
	}
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; print integers without a fraction
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
