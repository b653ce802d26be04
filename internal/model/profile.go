package model

// Profile holds the personal and delivery details of a customer.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// RegistrationRequest represents the sign-up form.
type RegistrationRequest struct {
	Profile
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// CustomerRole is the backend role assigned to self-registered accounts.
const CustomerRole = 2
