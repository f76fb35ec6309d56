package enums

import "fmt"

// CustomerSource records how a customer row came to exist.
type CustomerSource string

const (
	CustomerSourceManual     CustomerSource = "manual"
	CustomerSourceRegistered CustomerSource = "registered"
)

var validCustomerSources = []CustomerSource{
	CustomerSourceManual,
	CustomerSourceRegistered,
}

func (c CustomerSource) String() string {
	return string(c)
}

func (c CustomerSource) IsValid() bool {
	for _, candidate := range validCustomerSources {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseCustomerSource(value string) (CustomerSource, error) {
	for _, candidate := range validCustomerSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer source %q", value)
}
