package domain

import (
	"fmt"

	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
)

type ActorRole string

const (
	ActorRoleAdmin   ActorRole = "admin"
	ActorRoleManager ActorRole = "manager"
	// ActorRoleSystem attributes scheduled work such as the overdue sweep.
	ActorRoleSystem ActorRole = "system"
)

// Actor is the already-authenticated identity performing an action. It is
// resolved once by the caller and never looked up by the ledger.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role ActorRole `json:"role"`
}

// SystemActor is used for mutations nobody asked for explicitly.
var SystemActor = Actor{ID: uuid.Nil, Role: ActorRoleSystem}

func (a Actor) Validate() error {
	if a.ID == uuid.Nil {
		return customError.InvalidInput("actor id is required")
	}
	switch a.Role {
	case ActorRoleAdmin, ActorRoleManager:
		return nil
	default:
		return customError.InvalidInput("actor role %q is not allowed", a.Role)
	}
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}
