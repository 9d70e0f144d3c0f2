package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PriceString is a float that accepts the backend's three price
// encodings: a JSON number, a comma-grouped string ("98,500"), or null.
// Unparseable input decodes as zero rather than failing the payload.
type PriceString float64

func (p *PriceString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*p = 0
			return nil
		}
		*p = PriceString(ParsePrice(s))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*p = 0
		return nil
	}
	*p = PriceString(f)
	return nil
}

func (p PriceString) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(p))
}

// Float64 returns the parsed value.
func (p PriceString) Float64() float64 {
	return float64(p)
}

// ParsePrice converts a backend price string to a float, stripping comma
// grouping. Malformed input yields zero.
func ParsePrice(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
