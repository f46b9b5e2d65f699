package models

type ContactStatus string

const (
	ContactPending   ContactStatus = "pending"
	ContactRead      ContactStatus = "read"
	ContactResponded ContactStatus = "responded"
)

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactPending, ContactRead, ContactResponded:
		return true
	}
	return false
}

// Contact is a public contact-form submission.
type Contact struct {
	Base    `bson:",inline"`
	Name    string        `bson:"name" json:"name"`
	Email   string        `bson:"email" json:"email"`
	Phone   string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Subject string        `bson:"subject,omitempty" json:"subject,omitempty"`
	Message string        `bson:"message" json:"message"`
	Status  ContactStatus `bson:"status" json:"status"`
}
