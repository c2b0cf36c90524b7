package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cqkv/filecabinet/model"
	"github.com/shopspring/decimal"
)

// ErrInvalidRecord wraps every rule failure.
var ErrInvalidRecord = errors.New("invalid record")

var namePattern = regexp.MustCompile(`^[a-zA-Z '.-]*$`)

// Validator checks the fields of a candidate record.
type Validator interface {
	Validate(args model.RecordArgs) error
}

// Rule checks one field and returns a plain error describing the violation.
type Rule func(args model.RecordArgs) error

// CompositeValidator runs its rules in order and stops at the first failure.
type CompositeValidator struct {
	rules []Rule
}

func NewCompositeValidator(rules ...Rule) *CompositeValidator {
	return &CompositeValidator{rules: rules}
}

func (cv *CompositeValidator) Validate(args model.RecordArgs) error {
	for _, rule := range cv.rules {
		if err := rule(args); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	return nil
}

func FirstNameRule(min, max int) Rule {
	return func(args model.RecordArgs) error {
		return validateName("first name", args.FirstName, min, max)
	}
}

func LastNameRule(min, max int) Rule {
	return func(args model.RecordArgs) error {
		return validateName("last name", args.LastName, min, max)
	}
}

func validateName(field, name string, min, max int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%s cannot start or end with spaces", field)
	}
	if n := utf8.RuneCountInString(name); n < min || n > max {
		return fmt.Errorf("the length of %s must be between %d and %d characters", field, min, max)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%s may only contain latin letters, spaces, apostrophes, dots and dashes", field)
	}
	return nil
}

// DateOfBirthRule accepts dates in [from, to].
func DateOfBirthRule(from, to model.Date) Rule {
	return func(args model.RecordArgs) error {
		dob := args.DateOfBirth
		if !dob.IsValid() {
			return fmt.Errorf("date of birth %s is not a calendar date", dob)
		}
		if dob.Before(from) || dob.After(to) {
			return fmt.Errorf("date of birth can't be less than %s and larger than %s", from, to)
		}
		return nil
	}
}

func SalaryRule(min, max int16) Rule {
	return func(args model.RecordArgs) error {
		if args.Salary < min || args.Salary > max {
			return fmt.Errorf("salary must be between %d and %d", min, max)
		}
		return nil
	}
}

func WorkRateRule(min, max decimal.Decimal) Rule {
	return func(args model.RecordArgs) error {
		if args.WorkRate.LessThan(min) || args.WorkRate.GreaterThan(max) {
			return fmt.Errorf("work rate must be between %s and %s", min, max)
		}
		return nil
	}
}

func GenderRule(allowed ...rune) Rule {
	return func(args model.RecordArgs) error {
		for _, g := range allowed {
			if g == args.Gender {
				return nil
			}
		}
		codes := make([]string, 0, len(allowed))
		for _, g := range allowed {
			codes = append(codes, string(g))
		}
		return fmt.Errorf("gender can be only %s", strings.Join(codes, ", "))
	}
}

// Today is the upper bound of the default date of birth range.
func Today() model.Date {
	return model.DateOf(time.Now())
}
