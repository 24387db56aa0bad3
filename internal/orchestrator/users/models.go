package users

import (
	"time"

	"github.com/google/uuid"
)

// User is an account record. Records are immutable after creation: the
// orchestrator creates them during registration and removes them during
// deletion, nothing else mutates them.
type User struct {
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	UID         uuid.UUID `json:"uid"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}
