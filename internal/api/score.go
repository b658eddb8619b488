package api

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// scoreValue accepts a JSON number or a numeric string. Anything else decodes to no value
// rather than failing the whole request.
type scoreValue struct {
	v *float64
}

func (s *scoreValue) UnmarshalJSON(b []byte) error {
	s.v = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	var f float64
	switch t := raw.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	s.v = &f
	return nil
}
