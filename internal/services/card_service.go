package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"maestro/internal/core"
)

// CardService handles credit card CRUD with validation.
type CardService struct {
	store CardStore
}

func NewCardService(store CardStore) *CardService {
	return &CardService{store: store}
}

// CreateCard validates and stores a new card, assigning its ID.
func (s *CardService) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	c.ID = uuid.NewString()
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.store.CreateCard(ctx, c); err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

// UpdateCard validates and stores changes to an existing card.
func (s *CardService) UpdateCard(ctx context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateCard(ctx, c); err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

func (s *CardService) DeleteCard(ctx context.Context, id string) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

func (s *CardService) GetCard(ctx context.Context, id string) (core.Card, error) {
	return s.store.GetCard(ctx, id)
}

func (s *CardService) ListCards(ctx context.Context) ([]core.Card, error) {
	return s.store.ListCards(ctx)
}
