package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/katalvlaran/lvflow/recycle"
	"github.com/katalvlaran/lvflow/thermo"
)

// validate checks the `validate` tags of a File. Field paths use the YAML
// names so messages point into the document.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("flows", validateFlows)
	_ = v.RegisterValidation("phase", validatePhase)
	_ = v.RegisterValidation("unittype", validateUnitType)
	_ = v.RegisterValidation("accelerator", validateAccelerator)

	return v
}

// validateFlows accepts a chemical → kmol/h map of finite, non-negative flows.
func validateFlows(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map {
		return false
	}
	iter := field.MapRange()
	for iter.Next() {
		n := iter.Value().Float()
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return false
		}
	}

	return true
}

func validatePhase(fl validator.FieldLevel) bool {
	_, err := thermo.ParsePhase(fl.Field().String())
	return err == nil
}

func validateUnitType(fl validator.FieldLevel) bool {
	_, ok := builders[fl.Field().String()]
	return ok
}

// validateAccelerator accepts recycle accelerator names; empty is direct.
func validateAccelerator(fl validator.FieldLevel) bool {
	_, err := recycle.AcceleratorByName(fl.Field().String())
	return err == nil
}

// fieldErrors flattens validator errors into one ErrInvalidConfig, e.g.
// "streams[0].T fails gt=0; solver.max_passes fails gte=0".
func fieldErrors(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, len(ves))
	for i, fe := range ves {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs[i] = fmt.Sprintf("%s fails %s", path, rule)
	}

	return invalid("%s", strings.Join(msgs, "; "))
}
