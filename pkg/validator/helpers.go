package validator

import (
	"regexp"
	"strings"
)

var (
	EmailRX = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+\\/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
)

// Gallery and image names end up as path segments under the content root,
// so they must be clean single segments.
func ValidateGalleryName(v Validator, name string) {
	v.Check(name != "", "gallery", "must be provided")
	v.Check(len(name) <= 255, "gallery", "must not be more than 255 bytes long")
	v.Check(IsPathSegment(name), "gallery", "must not contain path separators")
}

func ValidateImageName(v Validator, name string) {
	v.Check(name != "", "image", "must be provided")
	v.Check(len(name) <= 255, "image", "must not be more than 255 bytes long")
	v.Check(IsPathSegment(name), "image", "must not contain path separators")
}

func ValidateEmail(v Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(Matches(email, EmailRX), "email", "must be a valid email address")
}

// IsPathSegment returns true if the value is a single clean path segment:
// no separators, no relative components, not hidden.
func IsPathSegment(value string) bool {
	if value == "" || value == "." || value == ".." {
		return false
	}
	if strings.HasPrefix(value, ".") {
		return false
	}
	return !strings.ContainsAny(value, `/\`)
}
