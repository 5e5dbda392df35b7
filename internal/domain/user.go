package domain

// User is the account profile returned by the remote account API.
type User struct {
	ID    string
	Email string
	Name  string
}

// Session pairs the remote session secret with the account it belongs to.
type Session struct {
	User   User
	Secret string
}
