package coordinator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/liamg/netradar/scan"
)

// SegmentSpec selects the third octets start..end (inclusive) of a subnet survey.
type SegmentSpec struct {
	Start int `json:"start" validate:"min=0,max=255"`
	End   int `json:"end" validate:"min=0,max=255,gtefield=Start"`
}

// HostSpec selects the /24 and port of a host survey.
type HostSpec struct {
	Prefix string `json:"prefix" validate:"prefix24"`
	Port   int    `json:"port" validate:"min=1,max=65535"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("prefix24", func(fl validator.FieldLevel) bool {
		_, err := scan.ParsePrefix(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("registering prefix24 validation: %s", err))
	}
	return v
}

// ParseSegmentRange converts raw user input into a SegmentSpec.
func ParseSegmentRange(start string, end string) (SegmentSpec, error) {

	var spec SegmentSpec
	input := fmt.Sprintf("%s-%s", start, end)

	s, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return spec, newValidationError(CodeInvalidRange, input, fmt.Sprintf("start '%s' is not a number", start))
	}

	e, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return spec, newValidationError(CodeInvalidRange, input, fmt.Sprintf("end '%s' is not a number", end))
	}

	spec.Start = s
	spec.End = e
	return spec, nil
}

func (c *Coordinator) validateSegments(spec SegmentSpec) error {
	if err := c.validate.Struct(spec); err != nil {
		return translate(err, fmt.Sprintf("%d-%d", spec.Start, spec.End))
	}
	return nil
}

func (c *Coordinator) validateHosts(spec HostSpec) (scan.Prefix, error) {
	if err := c.validate.Struct(spec); err != nil {
		return scan.Prefix{}, translate(err, fmt.Sprintf("%s port %d", spec.Prefix, spec.Port))
	}
	return scan.ParsePrefix(spec.Prefix)
}

func translate(err error, input string) error {

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("validating %s: %w", input, err)
	}

	fe := fieldErrors[0]
	switch fe.Field() {
	case "Prefix":
		return newValidationError(CodeInvalidPrefix, input, "prefix must be three numeric octets, e.g. 192.168.1")
	case "Port":
		return newValidationError(CodeInvalidPort, input, "port must be between 1 and 65535")
	case "End":
		if fe.Tag() == "gtefield" {
			return newValidationError(CodeInvalidRange, input, "start must not be greater than end")
		}
	}
	return newValidationError(CodeInvalidRange, input, "prefix bounds must be between 0 and 255")
}
