package encoding

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Serializable is implemented by values that own their wire form.
type Serializable interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

// EncodeJSON writes v to w as one JSON document.
func EncodeJSON[T any](w io.Writer, v T) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("json encode %T: %w", v, err)
	}
	return nil
}

// DecodeJSON reads one JSON document of type T from r.
func DecodeJSON[T any](r io.Reader) (T, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("json decode %T: %w", v, err)
	}
	return v, nil
}

func Marshal[T any](v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode %T: %w", v, err)
	}
	return data, nil
}

func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("json decode %T: %w", v, err)
	}
	return v, nil
}
