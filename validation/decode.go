package validation

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeError lists the raw fields whose values could not be converted to
// the target type.
type DecodeError struct {
	Fields map[string]error
}

func (e *DecodeError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Fields[name]))
	}
	return "decode input: " + strings.Join(parts, "; ")
}

// DecodeLogin converts loosely typed values into a [LoginInput].
func DecodeLogin(raw map[string]any) (LoginInput, error) {
	var in LoginInput
	err := decodeFields(raw, &in)
	return in, err
}

// DecodeRegister converts loosely typed values into a [RegisterInput]. An
// empty or blank grade leaves Grade nil.
func DecodeRegister(raw map[string]any) (RegisterInput, error) {
	var in RegisterInput
	err := decodeFields(raw, &in)
	return in, err
}

// FieldErrorsFor renders a [DecodeError] as field messages. Other errors map
// to a single "form" entry.
func (v *Validator) FieldErrorsFor(err error) FieldErrors {
	if err == nil {
		return nil
	}
	de, ok := err.(*DecodeError)
	if !ok {
		return FieldErrors{"form": v.Message(keyInvalid, v.label("form"))}
	}
	out := make(FieldErrors, len(de.Fields))
	for name := range de.Fields {
		if name == "grade" {
			out[name] = v.Message(keyRange, v.label(name), itoa(GradeMin), itoa(GradeMax))
			continue
		}
		out[name] = v.Message(keyInvalid, v.label(name))
	}
	return out
}

// decodeFields decodes each tagged field on its own so a bad value is
// attributed to its field and the others still decode.
func decodeFields(raw map[string]any, out any) error {
	rv := reflect.ValueOf(out).Elem()
	rt := rv.Type()

	var failed map[string]error
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		value, ok := lookup(raw, name)
		if !ok {
			continue
		}
		if err := decodeValue(value, rv.Field(i).Addr().Interface()); err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[name] = err
		}
	}
	if failed != nil {
		return &DecodeError{Fields: failed}
	}
	return nil
}

func decodeValue(value, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(wholeNumber),
			mapstructure.DecodeHookFuncType(blankToNil),
		),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(value)
}

// wholeNumber rejects fractional numbers for integer fields. Weak typing
// would otherwise truncate 7.9 to 7.
func wholeNumber(from, to reflect.Type, data any) (any, error) {
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", data)
	}
	return data, nil
}

// blankToNil leaves optional (pointer) fields unset for blank strings.
func blankToNil(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Ptr {
		return data, nil
	}
	s, _ := data.(string)
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if to.Elem().Kind() == reflect.Int {
		return strings.TrimSpace(s), nil
	}
	return data, nil
}

func lookup(raw map[string]any, name string) (any, bool) {
	if v, ok := raw[name]; ok {
		return v, true
	}
	for k, v := range raw {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
