package detector

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Number is an optional integer. The zero value means "not detected".
type Number struct {
	Value int
	Valid bool
}

// Some returns a present Number holding v
func Some(v int) Number {
	return Number{Value: v, Valid: true}
}

// Or returns the value, or def when the number is absent
func (n Number) Or(def int) int {
	if !n.Valid {
		return def
	}
	return n.Value
}

func (n Number) String() string {
	if !n.Valid {
		return "None"
	}
	return strconv.Itoa(n.Value)
}

// MarshalJSON encodes an absent number as null
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Value)), nil
}

// UnmarshalJSON accepts an integer or null
func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Number{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
