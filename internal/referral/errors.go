package referral

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors returned by Service. Callers match them with errors.Is;
// the wrapped message is safe to show to clients.
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateParticipant = errors.New("participant email already registered")
	ErrNotFound             = errors.New("not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrInvalidReferralCode  = errors.New("invalid referral code")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrProofRequired        = errors.New("proof required")
	ErrDuplicateSubmission  = errors.New("you can only submit this task once per day")
	ErrPointsOutOfRange     = errors.New("points awarded outside the task's range")
	ErrAlreadyReviewed      = errors.New("submission already reviewed")
	ErrUnavailable          = errors.New("service temporarily unavailable")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidCredentials, "InvalidCredentials"},
	{ErrValidation, "ValidationError"},
	{ErrDuplicateEmail, "DuplicateEmail"},
	{ErrDuplicateParticipant, "DuplicateParticipant"},
	{ErrTaskNotFound, "TaskNotFound"},
	{ErrNotFound, "NotFound"},
	{ErrInvalidReferralCode, "InvalidReferralCode"},
	{ErrInsufficientPoints, "InsufficientPoints"},
	{ErrProofRequired, "ProofRequired"},
	{ErrDuplicateSubmission, "DuplicateSubmission"},
	{ErrPointsOutOfRange, "PointsOutOfRange"},
	{ErrAlreadyReviewed, "AlreadyReviewed"},
	{ErrUnavailable, "Unavailable"},
}

// Kind returns the stable machine-readable name of err's category, or
// "Internal" for anything unexpected.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// storeErr wraps a database failure. Timeouts and connection failures
// are marked ErrUnavailable so callers can retry.
func storeErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates a request struct and converts failures to ErrValidation.
func check(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}
