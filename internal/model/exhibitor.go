package model

import "time"

// Exhibitor is a company present at the event.  Advisor fields name the
// person who receives meeting requests.
type Exhibitor struct {
	ID                 uint64    `json:"id"`
	CompanyName        string    `json:"company_name"`
	CompanyDescription string    `json:"company_description"`
	ContactEmail       string    `json:"contact_email"`
	ContactPhone       string    `json:"contact_phone"`
	WebsiteURL         string    `json:"website_url"`
	BoothNumber        string    `json:"booth_number"`
	BenefitTitle       string    `json:"benefit_title"`
	BenefitDescription string    `json:"benefit_description"`
	BenefitPercentage  string    `json:"benefit_percentage"`
	AdvisorName        string    `json:"advisor_name"`
	AdvisorEmail       string    `json:"advisor_email"`
	AdvisorPhone       string    `json:"advisor_phone"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}
