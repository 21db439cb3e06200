package order

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"dinner-ticketing/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	localMobile = regexp.MustCompile(`^0[17]\d{8}$`)
	intlMobile  = regexp.MustCompile(`^254[17]\d{8}$`)
)

// NormalizePhone maps 07XXXXXXXX / 01XXXXXXXX and 2547XXXXXXXX / 2541XXXXXXXX
// onto the 254XXXXXXXXX form the gateway expects.
func NormalizePhone(raw string) (string, bool) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	p = strings.TrimPrefix(p, "+")
	switch {
	case localMobile.MatchString(p):
		return "254" + p[1:], true
	case intlMobile.MatchString(p):
		return p, true
	}
	return "", false
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("kenyan_mobile", func(fl validator.FieldLevel) bool {
		_, ok := NormalizePhone(fl.Field().String())
		return ok
	})
	return v
}

var fieldMessages = map[string]string{
	"FullName": "Full name is required",
	"Email":    "A valid email address is required",
	"Phone":    "Invalid phone format. Use 07XXXXXXXX or 01XXXXXXXX",
	"Quantity": "Quantity must be at least 1",
}

var jsonNames = map[string]string{
	"FullName": "fullName",
	"Email":    "email",
	"Phone":    "phone",
	"Quantity": "quantity",
}

// validateRequest trims the request in place and checks it against the
// struct rules and the configured quantity ceiling.
func (s *OrderService) validateRequest(req *models.OrderRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	verr := &ValidationError{}
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.add(jsonNames[fe.Field()], fieldMessages[fe.Field()])
		}
	}
	if req.Quantity > s.ticket.MaxQuantity {
		verr.add("quantity", "Quantity cannot exceed "+strconv.Itoa(s.ticket.MaxQuantity))
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
