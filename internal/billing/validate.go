package billing

import (
	"errors"
	"regexp"
	"strings"

	"bill-backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a user-facing rejection of customer or cart input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var uaeMobile = regexp.MustCompile(`^5\d{8}$`)

// NormalizePhone strips every non-digit character
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ValidUAEPhone reports whether raw normalizes to a 9-digit mobile
// number starting with 5 (e.g. 501234567)
func ValidUAEPhone(raw string) bool {
	return uaeMobile.MatchString(NormalizePhone(raw))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("uaephone", func(fl validator.FieldLevel) bool {
		return ValidUAEPhone(fl.Field().String())
	})
	return v
}

var fieldMessages = map[string]string{
	"Name":  "Customer name is required (at least 2 characters)",
	"Email": "Invalid email",
	"Phone": "Must be 9-digit UAE mobile starting with 5 (e.g. 501234567)",
}

// ValidateCustomer checks the customer fields required to save a bill.
// Phone is optional here; order forwarding enforces it separately.
func ValidateCustomer(c models.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0].Field()
		msg, ok := fieldMessages[field]
		if !ok {
			msg = "Invalid " + strings.ToLower(field)
		}
		return &ValidationError{Field: strings.ToLower(field), Message: msg}
	}
	return err
}

// ValidateForSave rejects drafts that cannot become a bill
func ValidateForSave(d models.Draft) error {
	if len(billableItems(d.Items)) == 0 {
		return &ValidationError{Field: "items", Message: "Add items before saving"}
	}
	if strings.TrimSpace(d.InvoiceNumber) == "" {
		return &ValidationError{Field: "invoiceNumber", Message: "Invoice number is required"}
	}
	return ValidateCustomer(d.Customer)
}
