// internal/model/recipient.go
package model

// Recipient is a client resolved for a segment at dispatch time.
type Recipient struct {
	Email     string  `db:"email" json:"email"`
	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	Segment   Segment `db:"segment" json:"segment"`
}

// Fields returns the placeholder values used when rendering a template for r.
func (r Recipient) Fields() map[string]string {
	return map[string]string{
		"email":      r.Email,
		"first_name": r.FirstName,
		"last_name":  r.LastName,
	}
}
