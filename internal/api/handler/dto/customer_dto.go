package dto

import (
	"fmt"
	"strings"

	"profile-service/internal/domain/customer"
)

// PreferencesPayload uses pointer fields so a missing key is distinguishable
// from a zero value; wrong JSON types fail the decode itself.
type PreferencesPayload struct {
	Newsletter *bool   `json:"newsletter"`
	Language   *string `json:"language"`
}

func (p *PreferencesPayload) Validate() error {
	if p == nil {
		return fmt.Errorf("preferences are required")
	}
	if p.Newsletter == nil {
		return fmt.Errorf("preferences.newsletter must be a boolean")
	}
	if p.Language == nil {
		return fmt.Errorf("preferences.language must be a string")
	}
	return nil
}

func (p *PreferencesPayload) ToDomain() customer.Preferences {
	return customer.Preferences{
		Newsletter: *p.Newsletter,
		Language:   *p.Language,
	}
}

type CreateCustomerRequest struct {
	Email       string              `json:"email"`
	Tier        string              `json:"tier"`
	Preferences *PreferencesPayload `json:"preferences"`
}

func (r *CreateCustomerRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("email must contain '@'")
	}
	if !customer.Tier(r.Tier).Valid() {
		return fmt.Errorf("tier must be one of STANDARD, GOLD, PLATINUM")
	}
	return r.Preferences.Validate()
}

type UpdatePreferencesRequest struct {
	Newsletter *bool   `json:"newsletter"`
	Language   *string `json:"language"`
}

func (r *UpdatePreferencesRequest) Validate() error {
	if r.Newsletter == nil {
		return fmt.Errorf("newsletter must be a boolean")
	}
	if r.Language == nil {
		return fmt.Errorf("language must be a string")
	}
	return nil
}

func (r *UpdatePreferencesRequest) ToDomain() customer.Preferences {
	return customer.Preferences{
		Newsletter: *r.Newsletter,
		Language:   *r.Language,
	}
}

type PreferencesResponse struct {
	Newsletter bool   `json:"newsletter"`
	Language   string `json:"language"`
}

type CustomerResponse struct {
	ID          string              `json:"id"`
	Email       string              `json:"email"`
	Tier        string              `json:"tier"`
	Preferences PreferencesResponse `json:"preferences"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		ID:          cust.ID,
		Email:       cust.Email,
		Tier:        string(cust.Tier),
		Preferences: NewPreferencesResponse(cust.Preferences),
	}
}

func NewPreferencesResponse(prefs customer.Preferences) PreferencesResponse {
	return PreferencesResponse{
		Newsletter: prefs.Newsletter,
		Language:   prefs.Language,
	}
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
