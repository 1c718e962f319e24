package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chargePlanSchema = NewSchema(
	Required(ATTR_CHARGER_ID, FIELD_TYPE_STRING),
	Optional(ATTR_CHARGEPLAN_START_TIME, FIELD_TYPE_TIME),
	Optional(ATTR_CHARGEPLAN_STOP_TIME, FIELD_TYPE_TIME),
	Optional(ATTR_CHARGEPLAN_REPEAT, FIELD_TYPE_BOOLEAN),
)

func TestSchemaValidateCoerces(t *testing.T) {

	assert := assert.New(t)

	data, err := chargePlanSchema.Validate(map[string]any{
		ATTR_CHARGER_ID:            "EH12345",
		ATTR_CHARGEPLAN_START_TIME: "22:15",
		ATTR_CHARGEPLAN_STOP_TIME:  "06:00:30",
		ATTR_CHARGEPLAN_REPEAT:     "yes",
	})
	require.NoError(t, err)

	assert.Equal("EH12345", data[ATTR_CHARGER_ID])
	assert.Equal(TimeOfDay{Hour: 22, Minute: 15}, data[ATTR_CHARGEPLAN_START_TIME])
	assert.Equal(TimeOfDay{Hour: 6, Second: 30}, data[ATTR_CHARGEPLAN_STOP_TIME])
	assert.Equal(true, data[ATTR_CHARGEPLAN_REPEAT])
}

func TestSchemaValidateOmitsMissingOptionals(t *testing.T) {

	data, err := chargePlanSchema.Validate(map[string]any{ATTR_CHARGER_ID: "EH1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{ATTR_CHARGER_ID: "EH1"}, data)
}

func TestSchemaValidateReportsEveryFailure(t *testing.T) {

	assert := assert.New(t)

	_, err := chargePlanSchema.Validate(map[string]any{
		ATTR_CHARGEPLAN_START_TIME: "25:99",
		ATTR_CHARGEPLAN_REPEAT:     "maybe",
		"bogus":                    1,
	})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	keys := map[string]string{}
	for _, e := range schemaErr.Errors {
		keys[e.Key] = e.Reason
	}
	assert.Len(keys, 4)
	assert.Equal("required key not provided", keys[ATTR_CHARGER_ID])
	assert.Equal("extra keys not allowed", keys["bogus"])
	assert.Contains(keys, ATTR_CHARGEPLAN_START_TIME)
	assert.Contains(keys, ATTR_CHARGEPLAN_REPEAT)
	assert.ErrorIs(err, ErrInvalidCallData)
}

func TestPositiveIntCoercion(t *testing.T) {

	assert := assert.New(t)

	for _, value := range []any{16, int64(16), float64(16), "16", " 16 "} {
		v, err := FIELD_TYPE_POSITIVE_INT.Coerce(value)
		assert.NoError(err, "%v", value)
		assert.Equal(16, v)
	}

	v, err := FIELD_TYPE_POSITIVE_INT.Coerce(0)
	assert.NoError(err)
	assert.Equal(0, v)

	for _, value := range []any{-1, "-3", "sixteen", nil, map[string]any{}} {
		_, err := FIELD_TYPE_POSITIVE_INT.Coerce(value)
		assert.Error(err, "%v", value)
	}
}

func TestBooleanCoercion(t *testing.T) {

	assert := assert.New(t)

	for _, value := range []any{true, "on", "TRUE", "1", "enable", 1} {
		v, err := FIELD_TYPE_BOOLEAN.Coerce(value)
		assert.NoError(err, "%v", value)
		assert.Equal(true, v, "%v", value)
	}
	for _, value := range []any{false, "off", "no", "0", 0} {
		v, err := FIELD_TYPE_BOOLEAN.Coerce(value)
		assert.NoError(err, "%v", value)
		assert.Equal(false, v, "%v", value)
	}
	_, err := FIELD_TYPE_BOOLEAN.Coerce("perhaps")
	assert.Error(err)
}

func TestStringCoercion(t *testing.T) {

	v, err := FIELD_TYPE_STRING.Coerce(12345)
	assert.NoError(t, err)
	assert.Equal(t, "12345", v)

	_, err = FIELD_TYPE_STRING.Coerce([]any{"a"})
	assert.Error(t, err)
	_, err = FIELD_TYPE_STRING.Coerce(nil)
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {

	tod, err := ParseTimeOfDay("07:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05:00", tod.String())
	assert.Equal(t, 7*3600+5*60, tod.SecondsOfDay())

	// parts are plain integers
	tod, err = ParseTimeOfDay("07:5")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 5}, tod)

	tod, err = ParseTimeOfDay("7:05:9")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 5, Second: 9}, tod)

	for _, invalid := range []string{"7pm", "7", "24:00", "07:60", "07:00:60", "07:00:00:00", "-1:00"} {
		_, err = ParseTimeOfDay(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestDecodeParams(t *testing.T) {

	var params struct {
		ChargerId string `mapstructure:"charger_id"`
		Phase     *int   `mapstructure:"currentP1"`
	}
	err := DecodeParams(map[string]any{"charger_id": "EH1", "currentP1": 10, "repeat": true}, &params)
	require.NoError(t, err)
	assert.Equal(t, "EH1", params.ChargerId)
	require.NotNil(t, params.Phase)
	assert.Equal(t, 10, *params.Phase)
}

func TestTargetNotFoundError(t *testing.T) {

	err := error(TargetNotFoundError{Kind: TARGET_KIND_CIRCUIT, Id: 12})
	assert.ErrorIs(t, err, ErrTargetNotFound)
	assert.NotErrorIs(t, err, ErrUnknownService)
	assert.Equal(t, "Could not find circuit 12", err.Error())
}
