package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a full account record. Password always holds the argon2id encoded
// hash, never plaintext, and is excluded from JSON output.
type User struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"fullName"`
	Email            string    `json:"email"`
	Password         string    `json:"-"`
	Bio              string    `json:"bio"`
	ProfilePic       string    `json:"profilePic"`
	NativeLanguage   string    `json:"nativeLanguage"`
	LearningLanguage string    `json:"learningLanguage"`
	Location         string    `json:"location"`
	IsOnboarded      bool      `json:"isOnboarded"`
	CreatedAt        time.Time `json:"createdAt"`
}

// PublicProfile is the projection exposed to other users. Recommendation
// cards, friend lists and expanded friend requests all use this shape.
type PublicProfile struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"fullName"`
	ProfilePic       string    `json:"profilePic"`
	NativeLanguage   string    `json:"nativeLanguage"`
	LearningLanguage string    `json:"learningLanguage"`
}

// Public returns the user's public projection.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:               u.ID,
		FullName:         u.FullName,
		ProfilePic:       u.ProfilePic,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
	}
}
