package service

import (
	"context"
	"strconv"
	"strings"

	"betting-platform/internal/model"
)

// IdentifierKind selects how a user identifier is interpreted.
type IdentifierKind string

// Identifier kinds.
const (
	IdentifierID       IdentifierKind = "id"
	IdentifierEmail    IdentifierKind = "email"
	IdentifierUsername IdentifierKind = "username"
)

// Identifier addresses a user by id, email, or username. Resolution must
// yield exactly one user; anything else is an error.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// ByID addresses a user by numeric id.
func ByID(id int64) Identifier {
	return Identifier{Kind: IdentifierID, Value: strconv.FormatInt(id, 10)}
}

// ByEmail addresses a user by email.
func ByEmail(email string) Identifier {
	return Identifier{Kind: IdentifierEmail, Value: email}
}

// ByUsername addresses a user by username.
func ByUsername(username string) Identifier {
	return Identifier{Kind: IdentifierUsername, Value: username}
}

// ParseIdentifier guesses the kind of a free-form identifier the way admin
// tooling submits them: all digits means id, an @ means email, anything
// else is a username.
func ParseIdentifier(raw string) Identifier {
	raw = strings.TrimSpace(raw)
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Identifier{Kind: IdentifierID, Value: raw}
	}
	if strings.Contains(raw, "@") {
		return Identifier{Kind: IdentifierEmail, Value: raw}
	}
	return Identifier{Kind: IdentifierUsername, Value: raw}
}

// UserResolver resolves an identifier to exactly one user. Implementations
// return ErrNotFound for zero matches and ErrAmbiguousIdentifier for more
// than one.
type UserResolver interface {
	Resolve(ctx context.Context, ident Identifier) (*model.User, error)
}
