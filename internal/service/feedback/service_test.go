package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/feedback"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *mockStore) CreateFeedback(ctx context.Context, f *feedback.Feedback) error {
	return m.Called(ctx, f).Error(0)
}

func (m *mockStore) ListFeedbackByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]feedback.Feedback, error) {
	args := m.Called(ctx, customerID, limit)
	return args.Get(0).([]feedback.Feedback), args.Error(1)
}

func (m *mockStore) ListFeedbackByRecommendation(ctx context.Context, recommendationID uuid.UUID) ([]feedback.Feedback, error) {
	args := m.Called(ctx, recommendationID)
	return args.Get(0).([]feedback.Feedback), args.Error(1)
}

func (m *mockStore) ListRecentFeedback(ctx context.Context, limit int) ([]feedback.Feedback, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]feedback.Feedback), args.Error(1)
}

func (m *mockStore) GetFeedback(ctx context.Context, id uuid.UUID) (*feedback.Feedback, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feedback.Feedback), args.Error(1)
}

func (m *mockStore) FeedbackStats(ctx context.Context) (*feedback.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feedback.Stats), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordFeedback(ctx context.Context, feedbackType string) {
	m.Called(ctx, feedbackType)
}

func TestSubmit(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	customerID := uuid.New()
	rating := 4

	tests := []struct {
		name    string
		input   feedback.Feedback
		setup   func(*mockStore, *mockRecorder)
		wantErr errors.ErrorType
	}{
		{
			name:  "stored with defaults",
			input: feedback.Feedback{CustomerID: customerID, Rating: &rating},
			setup: func(s *mockStore, r *mockRecorder) {
				s.On("GetCustomer", mock.Anything, customerID).Return(&customer.Customer{ID: customerID}, nil)
				s.On("CreateFeedback", mock.Anything, mock.AnythingOfType("*feedback.Feedback")).Return(nil)
				r.On("RecordFeedback", mock.Anything, "recommendation_rating").Return()
			},
		},
		{
			name:    "invalid rating",
			input:   feedback.Feedback{CustomerID: customerID, Rating: func() *int { v := 9; return &v }()},
			setup:   func(*mockStore, *mockRecorder) {},
			wantErr: errors.ErrorTypeValidation,
		},
		{
			name:  "unknown customer",
			input: feedback.Feedback{CustomerID: customerID, Type: feedback.TypeGeneral},
			setup: func(s *mockStore, r *mockRecorder) {
				s.On("GetCustomer", mock.Anything, customerID).Return(nil, errors.NewNotFoundError("customer"))
			},
			wantErr: errors.ErrorTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			rec := new(mockRecorder)
			tt.setup(store, rec)
			svc := NewService(store, rec, &clock.MockClock{CurrentTime: now}, zaptest.NewLogger(t))

			in := tt.input
			got, err := svc.Submit(context.Background(), &in)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.wantErr))
				store.AssertNotCalled(t, "CreateFeedback", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.Equal(t, now, got.CreatedAt)
			assert.Equal(t, feedback.TypeRecommendationRating, got.Type)
			store.AssertExpectations(t)
			rec.AssertExpectations(t)
		})
	}
}

func TestForCustomerClampsLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, DefaultListLimit},
		{"passes through", 25, 25},
		{"clamped", 1000, maxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			id := uuid.New()
			store.On("ListFeedbackByCustomer", mock.Anything, id, tt.want).Return([]feedback.Feedback{}, nil)

			svc := NewService(store, nil, nil, nil)
			_, err := svc.ForCustomer(context.Background(), id, tt.limit)
			require.NoError(t, err)
			store.AssertExpectations(t)
		})
	}
}

func TestStats(t *testing.T) {
	store := new(mockStore)
	want := feedback.Summarize(nil)
	store.On("FeedbackStats", mock.Anything).Return(&want, nil)

	svc := NewService(store, nil, nil, zaptest.NewLogger(t))
	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &want, got)
}

func TestSummary(t *testing.T) {
	t.Run("stats with recent entries", func(t *testing.T) {
		store := new(mockStore)
		stats := feedback.Summarize([]feedback.Feedback{{Type: feedback.TypeGeneral}})
		recent := []feedback.Feedback{{ID: uuid.New(), Type: feedback.TypeGeneral}}
		store.On("FeedbackStats", mock.Anything).Return(&stats, nil)
		store.On("ListRecentFeedback", mock.Anything, DefaultListLimit).Return(recent, nil)

		svc := NewService(store, nil, nil, zaptest.NewLogger(t))
		got, err := svc.Summary(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stats.Total)
		assert.Equal(t, recent, got.Recent)
	})

	t.Run("no feedback yet", func(t *testing.T) {
		store := new(mockStore)
		stats := feedback.Summarize(nil)
		store.On("FeedbackStats", mock.Anything).Return(&stats, nil)
		store.On("ListRecentFeedback", mock.Anything, 5).Return(nil, nil)

		svc := NewService(store, nil, nil, nil)
		got, err := svc.Summary(context.Background(), 5)
		require.NoError(t, err)
		assert.NotNil(t, got.Recent)
		assert.Empty(t, got.Recent)
	})

	t.Run("stats failure", func(t *testing.T) {
		store := new(mockStore)
		store.On("FeedbackStats", mock.Anything).Return(nil, errors.NewInternalError("db down"))

		svc := NewService(store, nil, nil, nil)
		_, err := svc.Summary(context.Background(), 5)
		require.Error(t, err)
		store.AssertNotCalled(t, "ListRecentFeedback", mock.Anything, mock.Anything)
	})
}

func TestLookups(t *testing.T) {
	store := new(mockStore)
	recID, fbID := uuid.New(), uuid.New()
	entry := feedback.Feedback{ID: fbID, RecommendationID: &recID, Type: feedback.TypeRecommendationRating}
	store.On("ListFeedbackByRecommendation", mock.Anything, recID).Return([]feedback.Feedback{entry}, nil)
	store.On("GetFeedback", mock.Anything, fbID).Return(&entry, nil)

	svc := NewService(store, nil, nil, nil)

	byRec, err := svc.ForRecommendation(context.Background(), recID)
	require.NoError(t, err)
	require.Len(t, byRec, 1)
	assert.Equal(t, fbID, byRec[0].ID)

	got, err := svc.Get(context.Background(), fbID)
	require.NoError(t, err)
	assert.Equal(t, recID, *got.RecommendationID)
}
