// model/user.go
package model

import "github.com/google/uuid"

// User holds a library member. Books reference users by card number; the
// reference is weak, so removing a user clears the borrow state on any
// book they still hold.
type User struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	CardNumber string    `json:"card_number"`
}
