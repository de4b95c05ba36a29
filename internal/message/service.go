// Package message holds the business rules for the messages resource.
package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"

	"github.com/voyas/api/internal/database"
	"github.com/voyas/api/internal/model"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/voyas/api/internal/message Store

// Store is the data access the service needs. *database.Queries satisfies it.
type Store interface {
	CreateMessage(ctx context.Context, arg database.CreateMessageParams) (database.Message, error)
	ListMessages(ctx context.Context) ([]database.Message, error)
}

// CreateInput is the body of a create request. A nil Text means the field
// was missing or null.
type CreateInput struct {
	Text *string `json:"text" validate:"required,min=1,nonul"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates in and stores a new message. The returned message carries
// the generated id and the creation time assigned by the database.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Message, error) {
	if err := Validate(in); err != nil {
		return model.Message{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Message{}, fmt.Errorf("message: generate id: %w", err)
	}

	row, err := s.store.CreateMessage(ctx, database.CreateMessageParams{
		ID:   pgtype.UUID{Bytes: id, Valid: true},
		Text: *in.Text,
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("message: create: %w", err)
	}

	return model.FromRow(row), nil
}

// FindAll returns every stored message. The result is never nil.
func (s *Service) FindAll(ctx context.Context) ([]model.Message, error) {
	rows, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("message: list: %w", err)
	}

	return lo.Map(rows, func(row database.Message, _ int) model.Message {
		return model.FromRow(row)
	}), nil
}
