package restproxy

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gaborage/go-bricks-sdk/validation"
)

// DecodeHeaders fills the header-tagged fields of the struct pointed to by
// target. Map fields with the prefix option collect every header starting
// with the prefix, keyed by the remainder in lower case.
func DecodeHeaders(header http.Header, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		// headers decoded into a non-struct are ignored
		return nil
	}

	set, err := validation.ParseParamTags(rv.Type())
	if err != nil {
		return err
	}

	for _, info := range set.ByKind(validation.ParamHeader) {
		field := rv.FieldByIndex(info.Index)
		if !field.CanSet() {
			continue
		}

		if info.Prefix {
			if err := setPrefixedHeaders(field, header, info.ParamName); err != nil {
				return fmt.Errorf("failed to set headers %s*: %w", info.ParamName, err)
			}
			continue
		}

		values := header.Values(info.ParamName)
		if len(values) == 0 {
			continue
		}

		// Support comma-separated list for []string headers
		if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
			slice := reflect.MakeSlice(field.Type(), 0, len(values))
			for _, raw := range values {
				for _, p := range strings.Split(raw, ",") {
					if p = strings.TrimSpace(p); p != "" {
						slice = reflect.Append(slice, reflect.ValueOf(p).Convert(field.Type().Elem()))
					}
				}
			}
			field.Set(slice)
			continue
		}

		if err := setFieldValue(field, values[0]); err != nil {
			return fmt.Errorf("failed to set header %s: %w", info.ParamName, err)
		}
	}
	return nil
}

func setPrefixedHeaders(field reflect.Value, header http.Header, prefix string) error {
	prefix = strings.ToLower(prefix)
	m := reflect.MakeMap(field.Type())
	for name, values := range header {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || len(values) == 0 {
			continue
		}
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := setFieldValue(elem, values[0]); err != nil {
			return err
		}
		m.SetMapIndex(reflect.ValueOf(lower[len(prefix):]).Convert(field.Type().Key()), elem)
	}
	if m.Len() > 0 {
		field.Set(m)
	}
	return nil
}

type valueSetter func(reflect.Value, string) error

var kindSetters = map[reflect.Kind]valueSetter{
	reflect.String:  setStringValue,
	reflect.Int:     setSignedIntValue,
	reflect.Int8:    setSignedIntValue,
	reflect.Int16:   setSignedIntValue,
	reflect.Int32:   setSignedIntValue,
	reflect.Int64:   setSignedIntValue,
	reflect.Uint:    setUnsignedIntValue,
	reflect.Uint8:   setUnsignedIntValue,
	reflect.Uint16:  setUnsignedIntValue,
	reflect.Uint32:  setUnsignedIntValue,
	reflect.Uint64:  setUnsignedIntValue,
	reflect.Float32: setFloatValue,
	reflect.Float64: setFloatValue,
	reflect.Bool:    setBoolValue,
}

// setFieldValue sets a reflect.Value from a header value, handling type conversion.
func setFieldValue(fieldValue reflect.Value, value string) error {
	if fieldValue.Kind() == reflect.Pointer {
		if fieldValue.IsNil() {
			fieldValue.Set(reflect.New(fieldValue.Type().Elem()))
		}
		return setFieldValue(fieldValue.Elem(), value)
	}

	if fieldValue.Type() == timeType {
		t, err := parseHeaderTime(value)
		if err != nil {
			return err
		}
		fieldValue.Set(reflect.ValueOf(t))
		return nil
	}
	if fieldValue.Type() == durationType {
		d, err := parseHeaderDuration(value)
		if err != nil {
			return err
		}
		fieldValue.SetInt(int64(d))
		return nil
	}

	if setter, ok := kindSetters[fieldValue.Kind()]; ok {
		return setter(fieldValue, value)
	}
	return fmt.Errorf("unsupported field type: %s", fieldValue.Type())
}

var durationType = reflect.TypeOf(time.Duration(0))

func setStringValue(fieldValue reflect.Value, value string) error {
	fieldValue.SetString(value)
	return nil
}

func setSignedIntValue(fieldValue reflect.Value, value string) error {
	intVal, err := strconv.ParseInt(strings.TrimSpace(value), 10, fieldValue.Type().Bits())
	if err != nil {
		return err
	}
	fieldValue.SetInt(intVal)
	return nil
}

func setUnsignedIntValue(fieldValue reflect.Value, value string) error {
	uintVal, err := strconv.ParseUint(strings.TrimSpace(value), 10, fieldValue.Type().Bits())
	if err != nil {
		return err
	}
	fieldValue.SetUint(uintVal)
	return nil
}

func setFloatValue(fieldValue reflect.Value, value string) error {
	floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), fieldValue.Type().Bits())
	if err != nil {
		return err
	}
	fieldValue.SetFloat(floatVal)
	return nil
}

func setBoolValue(fieldValue reflect.Value, value string) error {
	boolVal, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	fieldValue.SetBool(boolVal)
	return nil
}

// parseHeaderTime accepts HTTP dates as well as RFC 3339 timestamps.
func parseHeaderTime(s string) (time.Time, error) {
	if t, err := http.ParseTime(s); err == nil {
		return t, nil
	}
	layouts := []string{time.RFC3339Nano, time.RFC3339}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseHeaderDuration accepts Go duration syntax or whole seconds.
func parseHeaderDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}
