package domain

// User is a read-only lookup for notification purposes.
type User struct {
	ID    string
	Email string
	Name  string
}
