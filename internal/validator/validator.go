// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"homeledger/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency_code", validateCurrencyCode)
		_ = v.RegisterValidation("split_category", validateSplitCategory)
		_ = v.RegisterValidation("month_key", validateMonthKey)
	}
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	return models.Currency(fl.Field().String()).Valid()
}

func validateSplitCategory(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "shared", "covered", "personal":
		return true
	}
	return false
}

func validateMonthKey(fl validator.FieldLevel) bool {
	return models.ValidMonthKey(fl.Field().String())
}
