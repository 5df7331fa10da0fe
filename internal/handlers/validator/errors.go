package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ErrInvalidField struct {
	error
}

func NewErrInvalidField(format string, args ...any) *ErrInvalidField {
	return &ErrInvalidField{fmt.Errorf(format, args...)}
}

// toFieldError turns the validator output into a message fit for a client.
func toFieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "media_type":
			msgs = append(msgs, fmt.Sprintf("Unsupported file type: %v", fe.Value()))
		case "language":
			msgs = append(msgs, fmt.Sprintf("invalid language: %v", printable(fe.Value())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return NewErrInvalidField("%s", strings.Join(msgs, ", "))
}

func printable(v any) any {
	if p, ok := v.(*string); ok && p != nil {
		return *p
	}
	return v
}
