package model

// AccountStatusActive is the only status eligible for suggestions.
const AccountStatusActive = "ACTIVE"

// Account is a candidate purchasing account as read from the account
// management store. The store owns these rows; this service never
// writes them.
//
// Fields:
//
//	ID         – account identifier in the account store.
//	Nickname   – unique human-assigned handle, the key used by the
//	             usage history and cooloff ledger.
//	StatusCode – account lifecycle state; must be ACTIVE to rank.
//	Email      – contact email (nullable in the store).
//	FullName   – display name of the account holder (nullable).
//	State      – two-letter state abbreviation of the account address.
//	MetroArea  – metro area / city name (nullable).
//	LatLng     – "lat,lng" string from the address row (nullable).
type Account struct {
	ID         string
	Nickname   string
	StatusCode string
	Email      *string
	FullName   *string
	State      string
	MetroArea  *string
	LatLng     *string
}
