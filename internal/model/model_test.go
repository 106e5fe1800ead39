package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingMethod_String(t *testing.T) {
	tests := []struct {
		method   MappingMethod
		expected string
	}{
		{ExifTrajectoryProjection, "ExifTrajectoryProjection"},
		{SequentialDirect, "SequentialDirect"},
		{SequentialInterpolated, "SequentialInterpolated"},
		{FallbackProportional, "FallbackProportional"},
		{MappingMethod(99), "MappingMethod(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.method.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMappingMethod_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(SequentialInterpolated)
	require.NoError(t, err)
	assert.Equal(t, `"SequentialInterpolated"`, string(data))

	var m MappingMethod
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, SequentialInterpolated, m)
}

func TestMappingMethod_UnmarshalUnknown(t *testing.T) {
	var m MappingMethod
	err := json.Unmarshal([]byte(`"Teleportation"`), &m)
	require.Error(t, err)
}

func TestDataFormatError_Message(t *testing.T) {
	err := &DataFormatError{
		Field:  "altitude",
		Reason: "missing required column: altitude",
		Hint:   "add required column: altitude",
	}
	assert.Contains(t, err.Error(), "missing required column: altitude")
	assert.Contains(t, err.Error(), "add required column: altitude")

	rowErr := &DataFormatError{Field: "lat", Row: 7, Reason: `cannot parse "abc" as latitude`}
	assert.Contains(t, rowErr.Error(), "row 7")
}

func TestExifParseError_Unwrap(t *testing.T) {
	inner := errors.New("bad rational")
	err := &ExifParseError{Filename: "DJI_0001.JPG", Reason: "latitude", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "DJI_0001.JPG")

	var target *ExifParseError
	assert.ErrorAs(t, error(err), &target)
}

func TestPhotoPosition_Fused(t *testing.T) {
	assert.True(t, PhotoPosition{Method: ExifTrajectoryProjection}.Fused())
	assert.False(t, PhotoPosition{Method: SequentialDirect}.Fused())
}
