package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSegmentRange(t *testing.T) {
	spec, err := ParseSegmentRange(" 0", "10 ")
	require.NoError(t, err)
	assert.Equal(t, SegmentSpec{Start: 0, End: 10}, spec)

	_, err = ParseSegmentRange("x", "2")
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Contains(t, err.Error(), "start 'x' is not a number")
}

func TestValidationErrorMatching(t *testing.T) {
	err := newValidationError(CodeInvalidPrefix, "192.168", "bad")
	assert.ErrorIs(t, err, ErrInvalidPrefix)
	assert.NotErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, "[INVALID_PREFIX] bad (input: 192.168)", err.Error())
}

func TestStartGreaterThanEndMessage(t *testing.T) {
	c := New(reachableOnly(), DefaultConfig(), nil, nil)
	defer c.Close()

	_, err := c.StartSubnetSurvey("5", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start must not be greater than end")
}

func TestNewValidatorRegistersPrefixRule(t *testing.T) {
	v := newValidator()
	require.NotNil(t, v)

	assert.NoError(t, v.Struct(HostSpec{Prefix: "10.0.0", Port: 80}))
	assert.Error(t, v.Struct(HostSpec{Prefix: "10.0", Port: 80}))
}
