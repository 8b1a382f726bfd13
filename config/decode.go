package config

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode maps input (usually a nested map) onto out using `mapstructure`
// tags, then validates `validate` tags when out points to a struct.
// Duration fields accept seconds or Go duration strings.
func Decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return err
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct {
		return validate.Struct(out)
	}
	return nil
}

func durationHook(from, to reflect.Type, data any) (any, error) {
	if from == nil || to != reflect.TypeOf(time.Duration(0)) || from == to {
		return data, nil
	}
	return ToDuration(data)
}
