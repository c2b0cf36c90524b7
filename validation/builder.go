package validation

import (
	"fmt"
	"time"

	"github.com/cqkv/filecabinet/model"
	"github.com/shopspring/decimal"
)

const (
	DefaultRules = "default"
	CustomRules  = "custom"
)

// Builder collects rules fluently.
type Builder struct {
	rules []Rule
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) FirstName(min, max int) *Builder {
	b.rules = append(b.rules, FirstNameRule(min, max))
	return b
}

func (b *Builder) LastName(min, max int) *Builder {
	b.rules = append(b.rules, LastNameRule(min, max))
	return b
}

func (b *Builder) DateOfBirth(from, to model.Date) *Builder {
	b.rules = append(b.rules, DateOfBirthRule(from, to))
	return b
}

func (b *Builder) Salary(min, max int16) *Builder {
	b.rules = append(b.rules, SalaryRule(min, max))
	return b
}

func (b *Builder) WorkRate(min, max decimal.Decimal) *Builder {
	b.rules = append(b.rules, WorkRateRule(min, max))
	return b
}

func (b *Builder) Gender(allowed ...rune) *Builder {
	b.rules = append(b.rules, GenderRule(allowed...))
	return b
}

func (b *Builder) Rule(rule Rule) *Builder {
	b.rules = append(b.rules, rule)
	return b
}

func (b *Builder) Build() *CompositeValidator {
	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)
	return NewCompositeValidator(rules...)
}

// Default is the looser rule set.
func Default() *CompositeValidator {
	return NewBuilder().
		FirstName(2, 60).
		LastName(2, 60).
		DateOfBirth(model.NewDate(1950, time.January, 1), Today()).
		Salary(100, 10000).
		WorkRate(decimal.New(25, -2), decimal.New(15, -1)).
		Gender('M', 'F').
		Build()
}

// Custom is the stricter rule set.
func Custom() *CompositeValidator {
	return NewBuilder().
		FirstName(3, 20).
		LastName(3, 20).
		DateOfBirth(model.NewDate(1970, time.January, 1), model.NewDate(2010, time.December, 31)).
		Salary(300, 6500).
		WorkRate(decimal.New(25, -2), decimal.New(1, 0)).
		Gender('M', 'F').
		Build()
}

// ByName returns the preset called name.
func ByName(name string) (*CompositeValidator, error) {
	switch name {
	case DefaultRules, "":
		return Default(), nil
	case CustomRules:
		return Custom(), nil
	default:
		return nil, fmt.Errorf("unknown validation rules %q", name)
	}
}
