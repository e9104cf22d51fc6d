package validators

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/courtbook/slot-engine/internal/domain/slot"
)

// IsClock reports whether s is a 24h "HH:MM" wall-clock time.
func IsClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := slot.ParseClock(s)
	return err == nil
}

// IsDate reports whether s is a calendar date in "YYYY-MM-DD" form.
func IsDate(s string) bool {
	_, err := time.Parse(slot.DateLayout, s)
	return err == nil
}

func hhmm(fl validator.FieldLevel) bool {
	return IsClock(fl.Field().String())
}

func isodate(fl validator.FieldLevel) bool {
	return IsDate(fl.Field().String())
}

// Register adds the hhmm and isodate tags to gin's binding validator.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("hhmm", hhmm); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", isodate)
}
