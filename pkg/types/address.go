package types

import "strings"

// Address is the structured delivery address stored as JSON on orders.
type Address struct {
	FullName   string `json:"full_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// AddressPlaceholder is rendered when no delivery address is known.
const AddressPlaceholder = "No address provided"

// Format joins the populated parts as "street, city, region, postal, country".
func (a *Address) Format() string {
	if a == nil {
		return AddressPlaceholder
	}
	parts := make([]string, 0, 5)
	for _, part := range []string{a.Street, a.City, a.Region, a.PostalCode, a.Country} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return AddressPlaceholder
	}
	return strings.Join(parts, ", ")
}
