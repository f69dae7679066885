package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// validate shares the `binding` tag with gin so request DTOs and service
// inputs declare their rules once.
var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return invalid("", "%v", err)
	}

	fe := validationErrors[0]
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return invalid(field, "is required")
	case "min":
		return invalid(field, "must have at least %s entries", fe.Param())
	case "gte":
		return invalid(field, "must be greater than or equal to %s", fe.Param())
	case "email":
		return invalid(field, "must be a valid email address")
	default:
		return invalid(field, "is invalid")
	}
}

// fieldPath turns "ProductInput.Variants[0].Price" into "variants[0].price".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func parseID(field, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, invalid(field, "invalid id %q", raw)
	}
	return id, nil
}
