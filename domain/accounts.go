package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

const DefaultProvider = "instagram"

// Account is the linked remote identity of a tenant. At most one exists per
// (Tenant, Provider). Username is the key used to detect identity changes.
type Account struct {
	Id           uuid.UUID
	Tenant       string
	Provider     string
	AccessToken  string
	RemoteUserId string
	Username     string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credential is the part of an Account needed to talk to the remote API.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

func (acc *Account) Credential() Credential {
	return Credential{AccessToken: acc.AccessToken, ExpiresAt: acc.ExpiresAt}
}

// Expired reports whether the credential expiry lies before now. A zero
// expiry means the token does not expire.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tTenant: %s \n\tProvider: %s \n\tUsername: %s \n\tExpiresAt: %s)", acc.Id, acc.Tenant, acc.Provider, acc.Username, acc.ExpiresAt)
}
