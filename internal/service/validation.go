package service

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	bdMobilePattern = regexp.MustCompile(`^(?:\+?88)?01[3-9]\d{8}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	indexPattern    = regexp.MustCompile(`\[(\d+)\]`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report request field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("bdmobile", func(fl validator.FieldLevel) bool {
		return IsBDMobile(fl.Field().String())
	})
	_ = v.RegisterValidation("profileemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("validname", func(fl validator.FieldLevel) bool {
		return ValidateName(fl.Field().String()) == ""
	})
	return v
}

// IsBDMobile reports whether s is a Bangladesh mobile number: optional +88,
// then 01, a digit from 3 to 9 and eight more digits.
func IsBDMobile(s string) bool {
	return bdMobilePattern.MatchString(s)
}

// validateStruct runs the tag rules of req and returns field messages keyed
// the way the client sent them.
func validateStruct(req interface{}) *ValidationError {
	verr := NewValidationError()
	err := validate.Struct(req)
	if err == nil {
		return verr
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.Add("_", err.Error())
		return verr
	}
	for _, fe := range errs {
		key := fieldKey(fe.Namespace())
		verr.Add(key, fieldMessage(fe, key))
	}
	return verr
}

// fieldKey turns "CreateFormRequest.elements[2].options" into "elements.2.options".
func fieldKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	return indexPattern.ReplaceAllString(namespace, ".$1")
}

func attributeName(key string) string {
	parts := strings.Split(key, ".")
	last := parts[len(parts)-1]
	// "ids.0" reports against ids
	for i := len(parts) - 1; i > 0 && isIndex(last); i-- {
		last = parts[i-1]
	}
	var b strings.Builder
	for i, r := range last {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte(' ')
		}
		if r == '_' {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func fieldMessage(fe validator.FieldError, key string) string {
	attr := attributeName(key)
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("The %s field is required.", attr)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s may not have more than %s items.", attr, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s characters.", attr, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s must have at least %s items.", attr, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s characters.", attr, fe.Param())
	case "oneof", "uuid", "uuid4":
		return fmt.Sprintf("The selected %s is invalid.", attr)
	case "email", "profileemail":
		return fmt.Sprintf("The %s must be a valid email address.", attr)
	case "bdmobile":
		return "Invalid mobile number provided."
	case "validname":
		if s, ok := fe.Value().(string); ok {
			return strings.ReplaceAll(ValidateName(s), ":attribute", attr)
		}
	case "dive":
		return fmt.Sprintf("The %s field is invalid.", attr)
	}
	return fmt.Sprintf("The %s field is invalid.", attr)
}

// ValidateName checks a person or organisation name and returns a message
// template (":attribute" placeholder) describing the first broken rule, or "".
func ValidateName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "The :attribute field is required and cannot be empty or only spaces."
	}

	hasLetter := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r), unicode.Is(unicode.Bengali, r):
		case r == '.', r == '-', r == '(', r == ')', r == '\'':
		default:
			return "The :attribute may only contain letters, numbers, spaces, dots, dashes, parentheses, apostrophes, and Bangla characters."
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter {
		return "The :attribute must contain at least one letter."
	}

	runes := []rune(value)
	first := runes[0]
	if !unicode.IsLetter(first) && !(first >= '0' && first <= '9') {
		return "The :attribute must start with a letter or number."
	}

	if !validNameEnding(runes) {
		return "The :attribute must end with a letter, number, a dot (after letter or parenthesis), or valid parenthesis."
	}
	if strings.Contains(value, "''") {
		return "The :attribute must not contain consecutive apostrophes."
	}
	if strings.HasPrefix(value, "'") || strings.HasSuffix(value, "'") {
		return "The :attribute must not start or end with an apostrophe."
	}
	return ""
}

func isNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Bengali, r)
}

func validNameEnding(runes []rune) bool {
	n := len(runes)
	if n >= 2 && runes[n-1] == '.' && runes[n-2] == '.' {
		return false
	}
	if isNameChar(runes[n-1]) {
		return true
	}
	if runes[n-1] == '.' && n >= 2 && isNameChar(runes[n-2]) {
		return true
	}
	body := runes
	if runes[n-1] == '.' {
		body = runes[:n-1]
	}
	return endsWithParenGroup(body)
}

// endsWithParenGroup matches a trailing "(x...)" whose first inner rune is a name character.
func endsWithParenGroup(runes []rune) bool {
	n := len(runes)
	if n < 3 || runes[n-1] != ')' {
		return false
	}
	for i := n - 2; i >= 0; i-- {
		switch runes[i] {
		case ')':
			return false
		case '(':
			return i+1 < n-1 && isNameChar(runes[i+1])
		}
	}
	return false
}
