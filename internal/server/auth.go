package server

import (
	"context"
	"errors"
)

// ErrInvalidToken indicates the presented token is definitively invalid.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is an authenticated caller. The escrow core never sees tokens,
// only the verified player ID.
type Identity struct {
	PlayerID string
}

// Validator resolves connection tokens to identities before any escrow
// operation runs for that connection.
type Validator interface {
	// Validate returns:
	//   - (*Identity, nil) if the token is valid
	//   - (nil, ErrInvalidToken) if it is not
	//   - (nil, nil) if auth is disabled (NoopValidator only)
	Validate(ctx context.Context, token string) (*Identity, error)
}

// StaticValidator authenticates against a fixed token → player map, the
// shape the HCL config provides.
type StaticValidator struct {
	tokens map[string]string
}

// NewStaticValidator creates a validator over a token → player ID map.
func NewStaticValidator(tokens map[string]string) *StaticValidator {
	return &StaticValidator{tokens: tokens}
}

func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	player, ok := v.tokens[token]
	if !ok || token == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{PlayerID: player}, nil
}

// NoopValidator allows all connections without validation (dev mode); the
// caller-supplied player name is trusted as the identity.
type NoopValidator struct{}

// NewNoopValidator creates a validator that allows all connections.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(context.Context, string) (*Identity, error) {
	return nil, nil
}
