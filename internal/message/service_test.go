package message

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/voyas/api/internal/database"
	"github.com/voyas/api/internal/message/mocks"
)

// memStore mimics the messages table: it keeps insertion order and stamps
// created_at on insert.
type memStore struct {
	mu   sync.Mutex
	rows []database.Message
	now  func() time.Time
}

func (m *memStore) CreateMessage(_ context.Context, arg database.CreateMessageParams) (database.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rows {
		if r.ID.Bytes == arg.ID.Bytes {
			return database.Message{}, errors.New("duplicate key value violates unique constraint")
		}
	}

	row := database.Message{
		ID:        arg.ID,
		Text:      arg.Text,
		CreatedAt: pgtype.Timestamptz{Time: m.now(), Valid: true},
	}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memStore) ListMessages(context.Context) ([]database.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.Message(nil), m.rows...), nil
}

func TestService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	svc := NewService(mockStore)
	ctx := context.Background()

	t.Run("should create and return the stored message", func(t *testing.T) {
		req := require.New(t)
		createdAt := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

		var gotParams database.CreateMessageParams
		mockStore.EXPECT().
			CreateMessage(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, arg database.CreateMessageParams) (database.Message, error) {
				gotParams = arg
				return database.Message{
					ID:        arg.ID,
					Text:      arg.Text,
					CreatedAt: pgtype.Timestamptz{Time: createdAt, Valid: true},
				}, nil
			}).
			Times(1)

		msg, err := svc.Create(ctx, CreateInput{Text: lo.ToPtr("Test message")})

		req.NoError(err)
		req.Equal("Test message", gotParams.Text)
		req.True(gotParams.ID.Valid)
		req.Equal(uuid.Version(7), uuid.UUID(gotParams.ID.Bytes).Version())
		req.Equal(uuid.UUID(gotParams.ID.Bytes), msg.ID)
		req.Equal("Test message", msg.Text)
		req.True(msg.CreatedAt.Equal(createdAt))
	})

	t.Run("should reject invalid text without touching the store", func(t *testing.T) {
		tests := []struct {
			name           string
			text           *string
			wantConstraint string
		}{
			{"null", nil, "required"},
			{"empty", lo.ToPtr(""), "min"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := require.New(t)

				// No expectation is set: any store call fails the test.
				msg, err := svc.Create(ctx, CreateInput{Text: tt.text})

				req.ErrorIs(err, ErrValidation)
				var verr *ValidationError
				req.ErrorAs(err, &verr)
				req.Len(verr.Violations, 1)
				req.Equal("text", verr.Violations[0].Field)
				req.Equal(tt.wantConstraint, verr.Violations[0].Constraint)
				req.Equal("text should not be empty", verr.Violations[0].Message)
				req.Zero(msg)
			})
		}
	})

	t.Run("should propagate store errors", func(t *testing.T) {
		req := require.New(t)
		storeErr := errors.New("connection refused")

		mockStore.EXPECT().
			CreateMessage(ctx, gomock.Any()).
			Return(database.Message{}, storeErr).
			Times(1)

		_, err := svc.Create(ctx, CreateInput{Text: lo.ToPtr("hi")})

		req.ErrorIs(err, storeErr)
		req.NotErrorIs(err, ErrValidation)
	})
}

func TestService_FindAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	svc := NewService(mockStore)
	ctx := context.Background()

	t.Run("should map every row", func(t *testing.T) {
		req := require.New(t)
		id := uuid.New()

		mockStore.EXPECT().
			ListMessages(ctx).
			Return([]database.Message{{
				ID:        pgtype.UUID{Bytes: id, Valid: true},
				Text:      "Msg1",
				CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
			}}, nil).
			Times(1)

		msgs, err := svc.FindAll(ctx)

		req.NoError(err)
		req.Len(msgs, 1)
		req.Equal(id, msgs[0].ID)
		req.Equal("Msg1", msgs[0].Text)
	})

	t.Run("should return an empty, non-nil slice", func(t *testing.T) {
		req := require.New(t)
		mockStore.EXPECT().ListMessages(ctx).Return(nil, nil).Times(1)

		msgs, err := svc.FindAll(ctx)

		req.NoError(err)
		req.NotNil(msgs)
		req.Empty(msgs)
	})

	t.Run("should propagate store errors", func(t *testing.T) {
		req := require.New(t)
		storeErr := errors.New("relation \"messages\" does not exist")
		mockStore.EXPECT().ListMessages(ctx).Return(nil, storeErr).Times(1)

		msgs, err := svc.FindAll(ctx)

		req.ErrorIs(err, storeErr)
		req.Nil(msgs)
	})
}

func TestService_CreateProperties(t *testing.T) {
	req := require.New(t)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &memStore{now: func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}}
	svc := NewService(store)
	ctx := context.Background()

	texts := []string{"a", "b", "c", " ", "çok güzel", "a"}
	seen := make(map[uuid.UUID]bool)
	var prev time.Time

	for _, text := range texts {
		msg, err := svc.Create(ctx, CreateInput{Text: lo.ToPtr(text)})
		req.NoError(err)

		req.Equal(text, msg.Text)
		req.False(seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
		req.False(msg.CreatedAt.Before(prev))
		prev = msg.CreatedAt
	}

	all, err := svc.FindAll(ctx)
	req.NoError(err)
	req.Len(all, len(texts))
}

func TestService_FindAllAfterCreates(t *testing.T) {
	req := require.New(t)
	store := &memStore{now: time.Now}
	svc := NewService(store)
	ctx := context.Background()

	created := make(map[uuid.UUID]string)
	for _, text := range []string{"a", "b", "c"} {
		msg, err := svc.Create(ctx, CreateInput{Text: lo.ToPtr(text)})
		req.NoError(err)
		created[msg.ID] = text
	}

	// A rejected create must not leave a row behind.
	_, err := svc.Create(ctx, CreateInput{Text: lo.ToPtr("")})
	req.ErrorIs(err, ErrValidation)

	all, err := svc.FindAll(ctx)
	req.NoError(err)
	req.Len(all, 3)
	for _, msg := range all {
		text, ok := created[msg.ID]
		req.True(ok)
		req.Equal(text, msg.Text)
		delete(created, msg.ID)
	}
	req.Empty(created)
}
