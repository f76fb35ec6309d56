package enums

import "fmt"

// EmailClass selects which user preference gates an outbound email.
type EmailClass string

const (
	EmailClassTransactional EmailClass = "transactional"
	EmailClassNewsletter    EmailClass = "newsletter"
	EmailClassMarketing     EmailClass = "marketing"
)

var validEmailClasses = []EmailClass{
	EmailClassTransactional,
	EmailClassNewsletter,
	EmailClassMarketing,
}

func (c EmailClass) String() string {
	return string(c)
}

func (c EmailClass) IsValid() bool {
	for _, candidate := range validEmailClasses {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseEmailClass(value string) (EmailClass, error) {
	for _, candidate := range validEmailClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email class %q", value)
}
