package console

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cqkv/filecabinet/model"
	"github.com/shopspring/decimal"
)

const fieldsUsage = `firstname=<name> lastname=<name> dateofbirth=<yyyy-Mon-dd> salary=<n> workrate=<decimal> gender=<M|F>`

var recordFields = []string{"firstname", "lastname", "dateofbirth", "salary", "workrate", "gender"}

// parseRecordArgs reads key=value pairs. Values with spaces are double quoted.
func parseRecordArgs(params string) (model.RecordArgs, error) {
	tokens, err := tokenize(params)
	if err != nil {
		return model.RecordArgs{}, err
	}

	values := make(map[string]string, len(tokens))
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			return model.RecordArgs{}, fmt.Errorf("%w: %q is not a key=value pair", errUsage, token)
		}
		values[strings.ToLower(key)] = value
	}
	for _, field := range recordFields {
		if _, ok := values[field]; !ok {
			return model.RecordArgs{}, fmt.Errorf("%w: %s is missing, input format: %s", errUsage, field, fieldsUsage)
		}
	}
	if len(values) != len(recordFields) {
		return model.RecordArgs{}, fmt.Errorf("%w: unknown field, input format: %s", errUsage, fieldsUsage)
	}

	args := model.RecordArgs{
		FirstName: values["firstname"],
		LastName:  values["lastname"],
	}
	if args.DateOfBirth, err = model.ParseDate(model.DateLayout, values["dateofbirth"]); err != nil {
		return model.RecordArgs{}, fmt.Errorf("%w: date of birth must look like 2000-Jan-31", errUsage)
	}
	salary, err := strconv.ParseInt(values["salary"], 10, 16)
	if err != nil {
		return model.RecordArgs{}, fmt.Errorf("%w: salary must be an integer in [-32768, 32767]", errUsage)
	}
	args.Salary = int16(salary)
	if args.WorkRate, err = decimal.NewFromString(values["workrate"]); err != nil {
		return model.RecordArgs{}, fmt.Errorf("%w: work rate must be a decimal number", errUsage)
	}
	gender := values["gender"]
	if utf8.RuneCountInString(gender) != 1 {
		return model.RecordArgs{}, fmt.Errorf("%w: gender must be a single character", errUsage)
	}
	args.Gender, _ = utf8.DecodeRuneInString(gender)

	return args, nil
}

// tokenize splits on spaces outside double quotes and drops the quotes.
func tokenize(s string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", errUsage)
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// formatRecord renders the list line: #id, first, last, yyyy-Mon-dd, salary, rate, gender.
// The work rate keeps its stored scale, so 1.50 prints as 1.50.
func formatRecord(r model.Record) string {
	return fmt.Sprintf("#%d, %s, %s, %s, %d, %s, %c",
		r.ID, r.FirstName, r.LastName, r.DateOfBirth, r.Salary, formatWorkRate(r.WorkRate), r.Gender)
}

func formatWorkRate(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
