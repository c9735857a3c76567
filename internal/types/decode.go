package types

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeFields converts loosely typed input (a []any of maps from a config
// file, a gRPC struct or a decoded JSON document) into fields.
// Keys match case-insensitively; scalar types are weakly coerced.
func DecodeFields(raw any) ([]Field, error) {
	return decodeList[Field](raw)
}

// DecodeOperators converts loosely typed input into operators.
func DecodeOperators(raw any) ([]Operator, error) {
	return decodeList[Operator](raw)
}

// DecodeCombinators converts loosely typed input into combinators.
func DecodeCombinators(raw any) ([]Combinator, error) {
	return decodeList[Combinator](raw)
}

// Decode decodes raw into out with the settings used across the model:
// weak typing and case-insensitive keys.
func Decode(raw any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func decodeList[T any](raw any) ([]T, error) {
	if raw == nil {
		return nil, nil
	}
	var out []T
	if err := Decode(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %T list: %w", *new(T), err)
	}
	return out, nil
}
