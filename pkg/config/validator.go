package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/fluxorio/lineserve/pkg/core"
)

// field resolves a dot-separated path ("Server.ReadTimeout") on config,
// which may be a struct or a pointer to one.
func field(config interface{}, path string) (reflect.Value, error) {
	current := reflect.ValueOf(config)
	for _, part := range strings.Split(path, ".") {
		if current.Kind() == reflect.Ptr {
			current = current.Elem()
		}
		if current.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field %s not found: %s is not a struct", path, part)
		}
		current = current.FieldByName(part)
		if !current.IsValid() {
			return reflect.Value{}, fmt.Errorf("field %s not found", path)
		}
	}
	return current, nil
}

// RequiredFields fails if any of the named fields holds its zero value.
func RequiredFields(fields ...string) Validator {
	return ValidatorFunc(func(config interface{}) error {
		var missing []string
		for _, name := range fields {
			v, err := field(config, name)
			if err != nil {
				return err
			}
			if v.IsZero() {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("required fields are missing: %s", strings.Join(missing, ", "))
		}
		return nil
	})
}

// RangeValidator checks that a numeric field lies in [min, max].
func RangeValidator(fieldName string, min, max float64) Validator {
	return ValidatorFunc(func(config interface{}) error {
		v, err := field(config, fieldName)
		if err != nil {
			return err
		}

		var n float64
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = float64(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n = float64(v.Uint())
		case reflect.Float32, reflect.Float64:
			n = v.Float()
		default:
			return fmt.Errorf("field %s is not numeric", fieldName)
		}

		if n < min || n > max {
			return fmt.Errorf("field %s value %v is out of range [%v, %v]", fieldName, n, min, max)
		}
		return nil
	})
}

// StringLengthValidator checks the byte length of a string field.
func StringLengthValidator(fieldName string, minLen, maxLen int) Validator {
	return ValidatorFunc(func(config interface{}) error {
		v, err := field(config, fieldName)
		if err != nil {
			return err
		}
		if v.Kind() != reflect.String {
			return fmt.Errorf("field %s is not a string", fieldName)
		}
		if n := v.Len(); n < minLen || n > maxLen {
			return fmt.Errorf("field %s length %d is out of range [%d, %d]", fieldName, n, minLen, maxLen)
		}
		return nil
	})
}

// OneOfValidator checks that a field equals one of allowedValues.
func OneOfValidator(fieldName string, allowedValues ...interface{}) Validator {
	return ValidatorFunc(func(config interface{}) error {
		v, err := field(config, fieldName)
		if err != nil {
			return err
		}
		got := v.Interface()
		for _, allowed := range allowedValues {
			if reflect.DeepEqual(got, allowed) {
				return nil
			}
		}
		return fmt.Errorf("field %s value %v is not one of allowed values: %v", fieldName, got, allowedValues)
	})
}

// AddressValidator checks that a string field is a "host:port" listen address.
func AddressValidator(fieldName string) Validator {
	return ValidatorFunc(func(config interface{}) error {
		v, err := field(config, fieldName)
		if err != nil {
			return err
		}
		if v.Kind() != reflect.String {
			return fmt.Errorf("field %s is not a string", fieldName)
		}
		if err := core.ValidateAddress(v.String()); err != nil {
			return fmt.Errorf("field %s: %w", fieldName, err)
		}
		return nil
	})
}

// TimeoutValidator checks that each named time.Duration field is a usable
// timeout (positive, at most five minutes).
func TimeoutValidator(fields ...string) Validator {
	return ValidatorFunc(func(config interface{}) error {
		for _, name := range fields {
			v, err := field(config, name)
			if err != nil {
				return err
			}
			if v.Type() != durationType {
				return fmt.Errorf("field %s is not a duration", name)
			}
			if err := core.ValidateTimeout(time.Duration(v.Int())); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
		}
		return nil
	})
}
