package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	workspaceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)
	listTitlePattern     = regexp.MustCompile(`^[\p{L}\p{N}_\s-]+$`)
	taskTitlePattern     = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)
	personNamePattern    = regexp.MustCompile(`^[A-Za-zÁÉÍÓÚáéíóúÑñ\s]+$`)
	passwordSpecials     = regexp.MustCompile(`[@$!%*?&\-/#^_]`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	mustRegister(v, "wsname", matches(workspaceNamePattern))
	mustRegister(v, "listtitle", matches(listTitlePattern))
	mustRegister(v, "tasktitle", matches(taskTitlePattern))
	mustRegister(v, "personname", matches(personNamePattern))
	mustRegister(v, "password", strongPassword)
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func strongPassword(fl validator.FieldLevel) bool {
	return CheckPassword(fl.Field().String()) == nil
}

// CheckPassword returns the first password rule the value breaks.
func CheckPassword(value string) error {
	switch {
	case !strings.ContainsAny(value, "abcdefghijklmnopqrstuvwxyz"):
		return errors.New("the password must have at least one lowercase letter (a-z)")
	case !strings.ContainsAny(value, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"):
		return errors.New("the password must have at least one uppercase letter (A-Z)")
	case !strings.ContainsAny(value, "0123456789"):
		return errors.New("the password must have at least one digit (0-9)")
	case !passwordSpecials.MatchString(value):
		return errors.New("the password must have at least one special character (@$!%*?&-/#^_)")
	}
	return nil
}

// Validate checks s against its validate tags and returns a readable error
// naming the offending fields.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "wsname", "tasktitle":
		return fmt.Sprintf("%s must contain only alphanumeric characters and spaces", fe.Field())
	case "listtitle":
		return fmt.Sprintf("%s can only contain alphanumeric characters, spaces, and hyphens", fe.Field())
	case "personname":
		return fmt.Sprintf("%s must contain only letters and spaces", fe.Field())
	case "password":
		if err := CheckPassword(fmt.Sprint(fe.Value())); err != nil {
			return err.Error()
		}
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
