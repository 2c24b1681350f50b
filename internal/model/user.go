package model

// User is the authenticated marketplace customer.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginResult is returned by the login endpoint.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
