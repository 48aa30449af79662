package model

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// TransportRequest describes a shipment needing a vehicle. Build it with
// NewTransportRequest so it is validated once.
type TransportRequest struct {
	Pickup             Location    `json:"pickup"`
	Delivery           *Location   `json:"delivery,omitempty"`
	RequiredCapacityKG float64     `json:"required_capacity_kg" validate:"gt=0"`
	VehicleType        VehicleType `json:"vehicle_type,omitempty" validate:"omitempty,oneof=refrigerated_truck general_truck refrigerated_van van pickup"`
	Perishable         bool        `json:"perishable"`
	MaxWaitMinutes     int         `json:"max_wait_minutes" validate:"gt=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// ValidateStruct runs tag based validation on s and converts the first
// failure into a ValidationError.
func ValidateStruct(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError(fe.Field(), describeTag(fe))
	}
	return NewValidationError("request", err.Error())
}

// NewTransportRequest validates r and returns it.
func NewTransportRequest(r TransportRequest) (TransportRequest, error) {
	if err := r.Validate(); err != nil {
		return TransportRequest{}, err
	}
	return r, nil
}

// Validate checks every field of the request.
func (r TransportRequest) Validate() error {
	if err := r.Pickup.Validate("pickup"); err != nil {
		return err
	}
	if r.Delivery != nil {
		if err := r.Delivery.Validate("delivery"); err != nil {
			return err
		}
	}
	return ValidateStruct(r)
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "required":
		return "is required"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
