package models

// Calendar is a single calendar belonging to a connected account.
type Calendar struct {
	ID       string
	Name     string
	Color    string
	Editable bool
	// Default marks the account's primary editable calendar. At most one
	// calendar per account carries it.
	Default   bool
	IsHoliday bool
	Source    string // provider tag, e.g. "google" or "caldav"
	AccountID string
}

// Account identifies one connected provider account.
type Account struct {
	ID       string
	Platform string // "google", "caldav"
	Email    string
}
