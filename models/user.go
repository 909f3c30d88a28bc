package models

import "time"

// DefaultRating is the rating assigned to every new user.
const DefaultRating = 1200

// User defines a user entity. Users are created outside the core;
// Rating is mutated only by the rating engine at debate conclusion.
type User struct {
	ID        string    `bson:"_id" json:"id"`
	Username  string    `bson:"username" json:"username"`
	Email     string    `bson:"email" json:"email"`
	Rating    int       `bson:"rating" json:"rating"`
	AvatarURL string    `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Bio       string    `bson:"bio,omitempty" json:"bio,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
