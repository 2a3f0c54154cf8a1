package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInteractionService_Log(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the interaction with defaults applied", func(t *testing.T) {
		mockRepo := new(MockInteractionRepository)
		mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(l *domain.InteractionLog) bool {
			return l.Query == "how to descale" && l.Source == "unknown" && l.ID != ""
		})).Return(nil)

		service := NewInteractionService(mockRepo)
		logged, err := service.Log(ctx, LogInteractionInput{
			Query:      "how to descale",
			Answer:     "run the cleaning program",
			Confidence: 0.75,
		})

		require.NoError(t, err)
		assert.Equal(t, "unknown", logged.Source)
		assert.InDelta(t, 0.75, logged.Confidence, 1e-4)
		mockRepo.AssertExpectations(t)
	})

	t.Run("out-of-range confidence is clamped", func(t *testing.T) {
		mockRepo := new(MockInteractionRepository)
		mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		service := NewInteractionService(mockRepo)
		logged, err := service.Log(ctx, LogInteractionInput{Query: "q", Confidence: 1.7})

		require.NoError(t, err)
		assert.InDelta(t, 1.0, logged.Confidence, 1e-6)
	})

	t.Run("blank query is rejected", func(t *testing.T) {
		mockRepo := new(MockInteractionRepository)

		service := NewInteractionService(mockRepo)
		_, err := service.Log(ctx, LogInteractionInput{Query: "   "})

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		mockRepo := new(MockInteractionRepository)
		mockRepo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))

		service := NewInteractionService(mockRepo)
		_, err := service.Log(ctx, LogInteractionInput{Query: "q"})

		assert.Error(t, err)
	})
}
