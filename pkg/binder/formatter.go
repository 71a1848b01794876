package binder

import (
	"fmt"
	"reflect"
	"strings"
	timepkg "time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
)

const (
	chapterno = "chapterno"
	date      = "date"
	email     = "email"
	gt        = "gt"
	gte       = "gte"
	mx        = "max"
	mn        = "min"
	mobile    = "mobile"
	ne        = "ne"
	oneof     = "oneof"
	required  = "required"
	uri       = "url"
)

var (
	timeType = reflect.TypeOf(timepkg.Time{})
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case chapterno:
		return fmt.Sprintf("%q is not a valid chapter number", field)
	case date:
		return fmt.Sprintf("%q should be in the format of YYYY-MM-DD", field)
	case email:
		return fmt.Sprintf("%q is not a valid email", field)
	case gt, gte:
		v := err.Param()
		if v == "" && err.Type() == timeType {
			v = "now"
		}
		op := "greater than"
		if err.Tag() == gte {
			op += " or equal to"
		}
		return fmt.Sprintf("%q must be %s %s", field, op, v)
	case mx:
		return formatBound(field, "less than or equal to", err)
	case mn:
		return formatBound(field, "greater than or equal to", err)
	case mobile:
		return fmt.Sprintf("%q is not a valid mobile number", field)
	case ne:
		return fmt.Sprintf("%q can't be %q", field, err.Param())
	case oneof:
		valids := []string{}
		for _, p := range strings.Fields(err.Param()) {
			valids = append(valids, fmt.Sprintf("%q", p))
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(valids, ", "))
	case required:
		return fmt.Sprintf("%q is required", field)
	case uri:
		return fmt.Sprintf("%q is not a valid URL", field)
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

// formatBound words min/max failures by kind: numbers compare by value,
// strings and slices by length.
func formatBound(field, op string, err validator.FieldError) string {
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s %s", field, op, err.Param())
	case reflect.Slice:
		return fmt.Sprintf("%q length must be %s %s %s", field, op, err.Param(), plural("element", err.Param()))
	default:
		return fmt.Sprintf("%q length must be %s %s %s", field, op, err.Param(), plural("character", err.Param()))
	}
}

func plural(noun, count string) string {
	if count == "1" {
		return noun
	}
	return noun + "s"
}
