package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Usher roles recognised by the auth middleware.
const (
	RoleUsher = "USHER"
	RoleAdmin = "ADMIN"
)

type Usher struct {
	bun.BaseModel `bun:"table:ushers"`

	Username    string    `bun:"username,pk" json:"username"`
	DisplayName string    `bun:"display_name,notnull" json:"display_name"`
	Role        string    `bun:"role,notnull" json:"role"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}
