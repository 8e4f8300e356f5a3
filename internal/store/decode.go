package store

import (
	"fmt"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/go-viper/mapstructure/v2"
)

// Decode maps a record onto a domain struct using its json tags.
func Decode[T any](rec guard.Record) (*T, error) {
	out := new(T)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// DecodeAll decodes every row of a result.
func DecodeAll[T any](rows []guard.Record) ([]*T, error) {
	out := make([]*T, 0, len(rows))
	for _, r := range rows {
		v, err := Decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
