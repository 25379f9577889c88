package address

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Address struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	Name         string `json:"name"`
	ReceiverName string `json:"receiver_name"`
	Phone        string `json:"phone"`

	Address1 string  `json:"address_line1"`
	Address2 *string `json:"address_line2,omitempty"`

	City     string `json:"city"`
	Province string `json:"province"`
	Postal   string `json:"postal_code"`
	Country  string `json:"country"`

	IsDefault bool      `json:"is_default"`
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type AddressInput struct {
	Name         string  `json:"name"`
	ReceiverName string  `json:"receiver_name"`
	Phone        string  `json:"phone"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         string  `json:"city"`
	Province     string  `json:"province"`
	PostalCode   string  `json:"postal_code"`
	Country      string  `json:"country"`
	SetAsDefault bool    `json:"set_as_default"`
}

// Validate reports the first required field that is blank.
func (in AddressInput) Validate() error {
	required := []struct {
		field, value string
	}{
		{"name", in.Name},
		{"receiver_name", in.ReceiverName},
		{"phone", in.Phone},
		{"address_line1", in.AddressLine1},
		{"city", in.City},
		{"postal_code", in.PostalCode},
		{"country", in.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &MissingFieldError{Field: r.field}
		}
	}
	return nil
}

func (in AddressInput) apply(a *Address) {
	a.Name = strings.TrimSpace(in.Name)
	a.ReceiverName = strings.TrimSpace(in.ReceiverName)
	a.Phone = strings.TrimSpace(in.Phone)
	a.Address1 = strings.TrimSpace(in.AddressLine1)
	a.Address2 = in.AddressLine2
	a.City = strings.TrimSpace(in.City)
	a.Province = strings.TrimSpace(in.Province)
	a.Postal = strings.TrimSpace(in.PostalCode)
	a.Country = strings.TrimSpace(in.Country)
	a.IsDefault = in.SetAsDefault
}
