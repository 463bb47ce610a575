package domain

import (
	"fmt"
	"regexp"
	"sort"
	"time"
	"unicode/utf8"
)

// Constraint describes the input rules of a single field. The table below is the
// one place those rules live: server side validation consults it through the
// `constraint=<field>` validate tag, and auth.constraints serves it to the UI.
type Constraint struct {
	Field   string `json:"field"`
	Label   string `json:"label"`
	Min     int    `json:"min,omitempty"`
	Max     int    `json:"max,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Hint    string `json:"hint,omitempty"`

	re *regexp.Regexp
}

// MaxBirthDate is the latest birth date accepted on signup.
var MaxBirthDate = time.Date(2013, time.December, 31, 23, 59, 59, 0, time.UTC)

// MaxPostImages is the maximum number of images attached to a single post.
const MaxPostImages = 4

// Constraints is the shared constraint table, keyed by field name.
var Constraints = buildConstraints(
	Constraint{Field: "email", Label: "Email", Min: 5, Max: 32},
	Constraint{Field: "password", Label: "Password", Min: 8, Max: 32},
	Constraint{Field: "firstName", Label: "First name", Min: 1, Max: 25},
	Constraint{Field: "lastName", Label: "Last name", Min: 1, Max: 25},
	Constraint{Field: "username", Label: "Username", Min: 3, Max: 15,
		Pattern: `^[A-Za-z0-9_]+$`, Hint: "Username may only contain letters, numbers and underscores."},
	Constraint{Field: "location", Label: "Location", Max: 30},
	Constraint{Field: "bio", Label: "Bio", Max: 160},
	Constraint{Field: "birthDate", Label: "Birth date",
		Hint: fmt.Sprintf("You must be born on or before %s to sign up.", MaxBirthDate.Format("January 2, 2006"))},
	Constraint{Field: "content", Label: "Post", Min: 1, Max: 280},
	Constraint{Field: "comment", Label: "Comment", Min: 1, Max: 280},
)

func buildConstraints(cs ...Constraint) map[string]Constraint {
	m := make(map[string]Constraint, len(cs))
	for _, c := range cs {
		if c.Pattern != "" {
			c.re = regexp.MustCompile(c.Pattern)
		}
		m[c.Field] = c
	}
	return m
}

// ConstraintList returns the constraint table ordered by field name.
func ConstraintList() []Constraint {
	list := make([]Constraint, 0, len(Constraints))
	for _, c := range Constraints {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Field < list[j].Field })
	return list
}

// Check returns a user facing message describing why value violates the
// constraint, or the empty string if it doesn't.
func (c Constraint) Check(value string) string {
	n := utf8.RuneCountInString(value)
	if c.Min > 0 && n < c.Min {
		if c.Min == 1 {
			return fmt.Sprintf("%s can't be empty.", c.Label)
		}
		return fmt.Sprintf("%s must be at least %d characters.", c.Label, c.Min)
	}
	if c.Max > 0 && n > c.Max {
		return fmt.Sprintf("%s must be at most %d characters.", c.Label, c.Max)
	}
	if c.re != nil && !c.re.MatchString(value) {
		return c.Hint
	}
	return ""
}
