// Package validation holds the domain validate tags shared by request
// decoding and the Firestore schema checks.
package validation

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

type rule struct {
	check   validator.Func
	message string
}

var tags = map[string]rule{
	"ymd": {
		check:   func(fl validator.FieldLevel) bool { return dates.Valid(fl.Field().String()) },
		message: "must be a date in YYYY-MM-DD format",
	},
	"hhmm": {
		check: func(fl validator.FieldLevel) bool {
			_, err := time.Parse("15:04", fl.Field().String())
			return err == nil
		},
		message: "must be a time in HH:MM format",
	},
	"shift_type": {
		check:   func(fl validator.FieldLevel) bool { return enums.ShiftType(fl.Field().String()).IsValid() },
		message: "must be one of Morning Evening Night",
	},
	"weekday": {
		check: func(fl validator.FieldLevel) bool {
			day, ok := dates.ParseWeekday(fl.Field().String())
			return ok && day.String() == fl.Field().String()
		},
		message: "must be a weekday name such as Monday",
	},
}

// Register adds every domain tag to v.
func Register(v *validator.Validate) error {
	for tag, r := range tags {
		if err := v.RegisterValidation(tag, r.check); err != nil {
			return fmt.Errorf("register %s validation: %w", tag, err)
		}
	}
	return nil
}

// MustRegister is Register for package-level validators.
func MustRegister(v *validator.Validate) *validator.Validate {
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// Message is the readable failure text for a domain tag.
func Message(tag string) (string, bool) {
	r, ok := tags[tag]
	return r.message, ok
}
