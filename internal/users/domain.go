package users

// User is one account record as served by the upstream dashboard API.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
