package todos

import (
	"context"

	"github.com/google/uuid"
)

// Service maps the four todo operations onto a Gateway. A Service built with
// a nil Gateway answers every call with ErrUnavailable.
type Service struct {
	gateway Gateway
	newID   func() string
}

func NewService(gateway Gateway) *Service {
	return &Service{
		gateway: gateway,
		newID:   uuid.NewString,
	}
}

// Available reports whether a store was resolved at start-up.
func (s *Service) Available() bool { return s.gateway != nil }

func (s *Service) List(ctx context.Context) ([]Todo, error) {
	if s.gateway == nil {
		return nil, ErrUnavailable
	}
	return s.gateway.List(ctx)
}

// Add validates title before touching the store.
func (s *Service) Add(ctx context.Context, title string) (Todo, error) {
	if s.gateway == nil {
		return Todo{}, ErrUnavailable
	}
	if title == "" {
		return Todo{}, ErrTitleRequired
	}

	t := Todo{ID: s.newID(), Title: title, Complete: false}
	if err := s.gateway.Create(ctx, t); err != nil {
		return Todo{}, err
	}
	return t, nil
}

// Update is a read-modify-write. Complete is always overwritten: a missing
// checkbox means false.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Todo, error) {
	if s.gateway == nil {
		return Todo{}, ErrUnavailable
	}
	t, err := s.gateway.Read(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	t.Complete = in.Complete

	if err := s.gateway.Replace(ctx, t); err != nil {
		return Todo{}, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if s.gateway == nil {
		return ErrUnavailable
	}
	return s.gateway.Delete(ctx, id)
}
