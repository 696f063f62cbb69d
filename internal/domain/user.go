package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is fixed at registration. A trainer authors plans; a client follows them.
type Role string

const (
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

// Valid reports whether r is a role a user can register with.
func (r Role) Valid() bool {
	return r == RoleTrainer || r == RoleClient
}

// User is an account of either role. Who coaches whom lives on
// CoachingRelationship, not here.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"` // Lowercased; unique index
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsTrainer() bool { return u.Role == RoleTrainer }

func (u *User) IsClient() bool { return u.Role == RoleClient }
