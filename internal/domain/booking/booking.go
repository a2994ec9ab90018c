// Package booking defines the public booking-request and contact-form inputs.
package booking

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/holidayhomes/bookingapi/internal/domain"
)

// Request is a guest's booking request as submitted by the public site.
type Request struct {
	Name           string              `json:"name" validate:"max=200"`
	Email          string              `json:"email" validate:"required,email,max=254"`
	Telephone      string              `json:"telephone" validate:"max=50"`
	Message        string              `json:"message" validate:"max=5000"`
	NumberOfPeople *int                `json:"numberOfPeople" validate:"omitempty,gte=1,lte=50"`
	NumberOfPets   *int                `json:"numberOfPets" validate:"omitempty,gte=0,lte=20"`
	StartDate      string              `json:"startDate" validate:"required"`
	EndDate        string              `json:"endDate" validate:"required"`
	TotalPrice     decimal.NullDecimal `json:"totalPrice"`
}

// Validate checks the request schema.
func (r *Request) Validate() error {
	return domain.Validate(r)
}

// ContactRequest is a message sent through a property's contact form.
type ContactRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Telephone string `json:"telephone" validate:"max=50"`
	Message   string `json:"message" validate:"required,max=5000"`
}

// Validate checks the contact form; missing fields share one message.
func (r *ContactRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Message == "" {
		return fmt.Errorf("%w: name, email, and message are required", domain.ErrValidation)
	}
	return domain.Validate(r)
}
