package utils

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

type ValidationService struct {
	validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func NewValidationService() *ValidationService {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("monitoring_intensity", validateMonitoringIntensity)
	v.RegisterValidation("widget_command", validateWidgetCommand)
	v.RegisterValidation("alert_type", validateAlertType)

	return &ValidationService{
		validator: v,
	}
}

func (vs *ValidationService) ValidateStruct(s interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := vs.validator.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: vs.getErrorMessage(err),
			})
		}
	}

	return validationErrors
}

func (vs *ValidationService) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "monitoring_intensity":
		return "Invalid monitoring intensity"
	case "widget_command":
		return "Unknown widget command"
	case "alert_type":
		return "Invalid alert type"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Custom validation functions
func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	cleaned := regexp.MustCompile(`\D`).ReplaceAllString(phone, "")

	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}

	phoneRegex := regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	return phoneRegex.MatchString("+" + cleaned)
}

func validateMonitoringIntensity(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "off", "check_in", "active", "panic":
		return true
	}
	return false
}

func validateWidgetCommand(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "check_in", "panic", "stop_monitoring", "toggle_monitoring":
		return true
	}
	return false
}

func validateAlertType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "panic", "dead_man_switch", "check_in_missed", "manual":
		return true
	}
	return false
}
