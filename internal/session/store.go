// Package session keeps per-visitor state on the server, referenced from the
// client only by an opaque id.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tablero/internal/model"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
}

// New returns an anonymous session with a fresh id.
func New() *model.Session {
	return &model.Session{
		ID:        uuid.NewString(),
		Role:      model.RoleUnauthenticated,
		CreatedAt: time.Now().UTC(),
	}
}

// ValidID reports whether id has the shape of an id issued by New.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func clone(s *model.Session) *model.Session {
	c := *s
	c.Flashes = append([]model.Flash(nil), s.Flashes...)
	return &c
}
