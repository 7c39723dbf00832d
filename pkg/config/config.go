package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Loader loads configuration from various sources
type Loader interface {
	Load(path string, target interface{}) error
}

// Validator validates configuration
type Validator interface {
	Validate(config interface{}) error
}

// ValidatorFunc is a function that validates configuration
type ValidatorFunc func(config interface{}) error

func (f ValidatorFunc) Validate(config interface{}) error {
	return f(config)
}

// Load loads configuration from a file (YAML or JSON)
// Automatically detects file type by extension
func Load(path string, target interface{}) error {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return LoadYAML(path, target)
	}
	if strings.HasSuffix(path, ".json") {
		return LoadJSON(path, target)
	}
	// Default to YAML
	return LoadYAML(path, target)
}

// Save writes configuration to a file, choosing YAML or JSON by extension
func Save(path string, config interface{}) error {
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(path, config)
	}
	return SaveYAML(path, config)
}

// LoadWithEnv loads configuration from file and applies environment variable overrides
// Environment variables use format: PREFIX_FIELD_SUBFIELD (e.g., APP_DATABASE_DSN)
func LoadWithEnv(path string, prefix string, target interface{}) error {
	// Load from file first
	if err := Load(path, target); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	// Apply environment variable overrides
	if err := ApplyEnvOverrides(prefix, target); err != nil {
		return fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return nil
}

// ApplyEnvOverrides applies environment variable overrides to configuration struct
// Uses reflection to set struct fields from environment variables
func ApplyEnvOverrides(prefix string, target interface{}) error {
	if prefix == "" {
		prefix = EnvPrefix
	}

	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}

	return applyEnvToStruct(prefix, val.Elem())
}

// applyEnvToStruct recursively applies environment variables to struct fields
func applyEnvToStruct(prefix string, val reflect.Value) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		envKey := prefix + "_" + envName(fieldType)

		// Handle nested structs
		if field.Kind() == reflect.Struct {
			if err := applyEnvToStruct(envKey, field); err != nil {
				return err
			}
			continue
		}

		// Handle pointers to structs
		if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
			if field.IsNil() {
				field.Set(reflect.New(field.Type().Elem()))
			}
			if err := applyEnvToStruct(envKey, field.Elem()); err != nil {
				return err
			}
			continue
		}

		// Get environment variable value
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue // No override for this field
		}

		// Set field value based on type
		if err := setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envKey, err)
		}
	}

	return nil
}

// envName derives the variable suffix from the yaml tag, falling back to
// the field name: `yaml:"read_timeout"` becomes READ_TIMEOUT.
func envName(f reflect.StructField) string {
	name := f.Name
	if tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ","); tag != "" && tag != "-" {
		name = tag
	}
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldFromEnv sets a struct field value from environment variable string
func setFieldFromEnv(field reflect.Value, envValue string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(envValue)
		if err != nil {
			return fmt.Errorf("invalid duration value: %s", envValue)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var intVal int64
		if _, err := fmt.Sscanf(envValue, "%d", &intVal); err != nil {
			return fmt.Errorf("invalid integer value: %s", envValue)
		}
		field.SetInt(intVal)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var uintVal uint64
		if _, err := fmt.Sscanf(envValue, "%d", &uintVal); err != nil {
			return fmt.Errorf("invalid unsigned integer value: %s", envValue)
		}
		field.SetUint(uintVal)
	case reflect.Float32, reflect.Float64:
		var floatVal float64
		if _, err := fmt.Sscanf(envValue, "%f", &floatVal); err != nil {
			return fmt.Errorf("invalid float value: %s", envValue)
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(envValue)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", envValue)
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		// For slices, split by comma
		parts := strings.Split(envValue, ",")
		sliceType := field.Type().Elem()
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, part := range parts {
			part = strings.TrimSpace(part)
			elem := reflect.New(sliceType).Elem()
			if err := setFieldFromEnv(elem, part); err != nil {
				return err
			}
			slice.Index(i).Set(elem)
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate validates configuration using registered validators
func Validate(config interface{}, validators ...Validator) error {
	for _, validator := range validators {
		if err := validator.Validate(config); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}
