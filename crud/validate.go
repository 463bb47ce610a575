package crud

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"postfeed/domain"
	"postfeed/errs"
)

// validate checks the validate tags of incoming request structs. Field names in
// its errors are the json names the client sent.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// constraint=<field> checks a string against the shared constraint table.
	_ = v.RegisterValidation("constraint", func(fl validator.FieldLevel) bool {
		c, ok := domain.Constraints[fl.Param()]
		if !ok {
			return false
		}
		return c.Check(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.After(domain.MaxBirthDate)
	})
	return v
}

// validateInput validates a request struct and converts validation failures
// into an EINVALID error carrying one message per failed field.
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	appErr := errs.Errorf(errs.EINVALID, "%s", fieldMessage(fieldErrs[0]))
	for _, fe := range fieldErrs {
		if _, ok := appErr.Fields[fe.Field()]; ok {
			continue
		}
		appErr.Field(fe.Field(), fieldMessage(fe))
	}
	return appErr
}

// fieldMessage turns a single validation failure into a user facing message.
func fieldMessage(fe validator.FieldError) string {
	label := fe.Field()
	if c, ok := domain.Constraints[fe.Field()]; ok {
		label = c.Label
	}
	switch fe.Tag() {
	case "constraint":
		if c, ok := domain.Constraints[fe.Param()]; ok {
			if msg := c.Check(fmt.Sprint(fe.Value())); msg != "" {
				return msg
			}
		}
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "Passwords don't match."
	case "birthdate":
		return domain.Constraints["birthDate"].Hint
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and %d.", label, domain.MaxFeedLimit)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid.", label)
}

// requireCaller makes sure that a protected operation is called with a complete identity.
func requireCaller(caller *domain.Caller) error {
	if !caller.Valid() {
		return errs.Errorf(errs.EUNAUTHENTICATED, "You must be signed in to do that.")
	}
	return nil
}

// strict strips every html tag from user supplied text.
var strict = bluemonday.StrictPolicy()

// sanitize strips markup from user supplied text and trims surrounding whitespace.
// Entities escaped by the policy are decoded again, so that plain text like
// "a < b" survives unchanged.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// normalizeEmail lower cases an email address and trims its whitespace.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var hashtagRegex = regexp.MustCompile(`#([\p{L}\p{N}_]{1,50})`)

// extractHashtags returns the distinct lower case hashtags mentioned in content,
// without their leading #, in order of appearance.
func extractHashtags(content string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, m := range hashtagRegex.FindAllStringSubmatch(content, -1) {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// normalizeHashtag turns a hashtag filter like "#Go" into the stored form "go".
func normalizeHashtag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}
