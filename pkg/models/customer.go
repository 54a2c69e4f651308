package models

import "strings"

// Customer identifies who is placing a WhatsApp order. Nothing else about
// the customer is stored.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (c Customer) Trimmed() Customer {
	return Customer{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
	}
}
