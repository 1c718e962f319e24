package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

type FieldType string

const (
	FIELD_TYPE_STRING       FieldType = "string"
	FIELD_TYPE_POSITIVE_INT FieldType = "positive_int"
	FIELD_TYPE_TIME         FieldType = "time"
	FIELD_TYPE_BOOLEAN      FieldType = "boolean"
)

type SchemaField struct {
	Key      string    `json:"key"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Schema is the parameter contract of a service. Fields keep declaration order.
type Schema struct {
	Fields []SchemaField
}

func NewSchema(fields ...SchemaField) Schema {
	return Schema{Fields: fields}
}

func Required(key string, fieldType FieldType) SchemaField {
	return SchemaField{Key: key, Type: fieldType, Required: true}
}

func Optional(key string, fieldType FieldType) SchemaField {
	return SchemaField{Key: key, Type: fieldType}
}

func (s Schema) Field(key string) (SchemaField, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return SchemaField{}, false
}

// Validate checks data against the schema and returns a copy holding the
// coerced values. Unknown keys and missing required keys are rejected.
// Every failure is reported in one *SchemaError.
func (s Schema) Validate(data map[string]any) (map[string]any, error) {
	var errs []*ValidationError
	out := make(map[string]any, len(data))

	for _, field := range s.Fields {
		value, exists := data[field.Key]
		if !exists {
			if field.Required {
				errs = append(errs, &ValidationError{Key: field.Key, Reason: "required key not provided"})
			}
			continue
		}
		coerced, err := field.Type.Coerce(value)
		if err != nil {
			errs = append(errs, &ValidationError{Key: field.Key, Reason: err.Error(), Value: value})
			continue
		}
		out[field.Key] = coerced
	}

	for key, value := range data {
		if _, known := s.Field(key); !known {
			errs = append(errs, &ValidationError{Key: key, Reason: "extra keys not allowed", Value: value})
		}
	}

	if len(errs) > 0 {
		return nil, &SchemaError{Errors: errs}
	}
	return out, nil
}

// Coerce converts value into the canonical Go type of the field type:
// string, int, TimeOfDay or bool.
func (t FieldType) Coerce(value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("expected %s", t)
	}
	switch t {
	case FIELD_TYPE_STRING:
		switch value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("expected %s", t)
		}
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("expected %s", t)
		}
		return s, nil
	case FIELD_TYPE_POSITIVE_INT:
		var i int
		var err error
		if s, ok := value.(string); ok {
			i, err = strconv.Atoi(strings.TrimSpace(s))
		} else {
			i, err = cast.ToIntE(value)
		}
		if err != nil {
			return nil, fmt.Errorf("expected int")
		}
		if i < 0 {
			return nil, fmt.Errorf("value must be at least 0")
		}
		return i, nil
	case FIELD_TYPE_TIME:
		switch v := value.(type) {
		case TimeOfDay:
			return v, nil
		case string:
			return ParseTimeOfDay(v)
		}
		return nil, fmt.Errorf("expected %s", t)
	case FIELD_TYPE_BOOLEAN:
		if s, ok := value.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "1", "true", "yes", "on", "enable":
				return true, nil
			case "0", "false", "no", "off", "disable":
				return false, nil
			}
			return nil, fmt.Errorf("invalid boolean value %s", s)
		}
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("expected %s", t)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}

// TimeOfDay is a wall clock time without date, as used by charge plans.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "H:M" or "H:M:S"; each part is a plain integer, so
// "07:5" is 07:05:00.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time specified: %s", value)
	}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time specified: %s", value)
		}
		fields[i] = n
	}
	tod := TimeOfDay{Hour: fields[0], Minute: fields[1], Second: fields[2]}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 || tod.Second < 0 || tod.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time specified: %s", value)
	}
	return tod, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) SecondsOfDay() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DecodeParams copies validated service data into a tagged struct.
func DecodeParams(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}
