package validation

import (
	"regexp"
	"strconv"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Age bounds accepted on a profile.
const (
	MinAge = 18
	MaxAge = 120
)

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 200
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 200
}

func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= 100
}

// ValidateAge accepts decimal numeric text within [MinAge, MaxAge].
func ValidateAge(age string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(age))
	return err == nil && n >= MinAge && n <= MaxAge
}

func ValidateLocation(location string) bool {
	location = strings.TrimSpace(location)
	return location != "" && len(location) <= 200
}
