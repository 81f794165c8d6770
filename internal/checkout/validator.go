package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Countries are the shipping destinations offered at checkout.
var Countries = []Country{
	{Code: "MK", Name: "North Macedonia"},
	{Code: "AL", Name: "Albania"},
	{Code: "BG", Name: "Bulgaria"},
	{Code: "GR", Name: "Greece"},
	{Code: "RS", Name: "Serbia"},
	{Code: "XK", Name: "Kosovo"},
	{Code: "ME", Name: "Montenegro"},
	{Code: "HR", Name: "Croatia"},
	{Code: "SI", Name: "Slovenia"},
	{Code: "BA", Name: "Bosnia and Herzegovina"},
	{Code: "AT", Name: "Austria"},
	{Code: "DE", Name: "Germany"},
	{Code: "CH", Name: "Switzerland"},
	{Code: "IT", Name: "Italy"},
	{Code: "FR", Name: "France"},
	{Code: "NL", Name: "Netherlands"},
	{Code: "SE", Name: "Sweden"},
	{Code: "GB", Name: "United Kingdom"},
	{Code: "US", Name: "United States"},
}

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var phonePattern = regexp.MustCompile(`^[0-9 +\-()]+$`)

// Form is the raw checkout form as posted by the storefront.
type Form struct {
	Email      string `json:"email"      validate:"required,email"`
	Phone      string `json:"phone"      validate:"required,phone"`
	FullName   string `json:"fullName"   validate:"required,min=2"`
	Address    string `json:"address"    validate:"required,min=5"`
	City       string `json:"city"       validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country"    validate:"required,country"`
	Notes      string `json:"notes"`
}

// Result holds either the validated submission or one message per invalid
// field, keyed by the field's JSON name.
type Result struct {
	Success bool                       `json:"success"`
	Data    *domain.CheckoutSubmission `json:"data,omitempty"`
	Errors  map[string]string          `json:"errors,omitempty"`
}

var messages = map[string]map[string]string{
	"email": {
		"required": "Email is required",
		"email":    "Enter a valid email address",
	},
	"phone": {
		"required": "Phone number is required",
		"phone":    "Phone number may only contain digits, spaces, +, - and parentheses",
	},
	"fullName": {
		"required": "Full name is required",
		"min":      "Full name must be at least 2 characters",
	},
	"address": {
		"required": "Address is required",
		"min":      "Address must be at least 5 characters",
	},
	"city": {
		"required": "City is required",
	},
	"postalCode": {
		"required": "Postal code is required",
	},
	"country": {
		"required": "Country is required",
		"country":  "Select a country from the list",
	},
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		return IsCountry(fl.Field().String())
	})

	return &Validator{validate: v}
}

func IsCountry(code string) bool {
	for _, c := range Countries {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Validate checks every field and never fails for bad input: problems are
// reported in Result.Errors. Surrounding whitespace is ignored.
func (v *Validator) Validate(form Form) Result {
	form = trimForm(form)

	err := v.validate.Struct(form)
	if err == nil {
		return Result{
			Success: true,
			Data: &domain.CheckoutSubmission{
				Email:      form.Email,
				Phone:      form.Phone,
				FullName:   form.FullName,
				Address:    form.Address,
				City:       form.City,
				PostalCode: form.PostalCode,
				Country:    form.Country,
				Notes:      form.Notes,
			},
		}
	}

	errs := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["form"] = "Form could not be validated"
		return Result{Errors: errs}
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := errs[field]; seen {
			continue
		}
		msg, ok := messages[field][fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		errs[field] = msg
	}
	return Result{Errors: errs}
}

func trimForm(f Form) Form {
	return Form{
		Email:      strings.TrimSpace(f.Email),
		Phone:      strings.TrimSpace(f.Phone),
		FullName:   strings.TrimSpace(f.FullName),
		Address:    strings.TrimSpace(f.Address),
		City:       strings.TrimSpace(f.City),
		PostalCode: strings.TrimSpace(f.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(f.Country)),
		Notes:      strings.TrimSpace(f.Notes),
	}
}
