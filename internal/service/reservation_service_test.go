package service

import (
	"context"
	"testing"

	"schoollend/internal/domain"
	"schoollend/internal/events"
	"schoollend/internal/models"
	"schoollend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReservationService(t *testing.T) {
	repo := newReservationRepo(t)
	bus := new(mockEventBus)
	svc := NewReservationService(repo, bus, discardLogger())
	svc.SetClock(fixedClock)
	ctx := context.Background()

	t.Run("AdminListFilters", func(t *testing.T) {
		got, err := svc.AdminList(ctx, domain.ReservationQuery{Text: "bakker"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "RES-002", got[0].ID)

		got, err = svc.AdminList(ctx, domain.ReservationQuery{Status: " ACTIVE "})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "RES-003", got[0].ID)

		got, err = svc.AdminList(ctx, domain.ReservationQuery{Status: "all"})
		require.NoError(t, err)
		assert.Len(t, got, 4)

		_, err = svc.AdminList(ctx, domain.ReservationQuery{Status: "lost"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Stats{Total: 4, Pending: 1, Active: 1, Overdue: 1}, stats)
	})

	t.Run("PersonalList", func(t *testing.T) {
		got, err := svc.PersonalList(ctx, "JAN.DEVRIES@student.school.nl")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, models.PersonalConfirmed, got[0].Status.Personal())
		assert.Equal(t, models.PersonalActive, got[1].Status.Personal())

		_, err = svc.PersonalList(ctx, "  ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Overdue", func(t *testing.T) {
		got, err := svc.Overdue(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "RES-003", got[0].ID)
	})

	t.Run("StatusChangeIsLoggedNotApplied", func(t *testing.T) {
		bus.On("PublishJSON", events.EventStatusChangeRequested, mock.MatchedBy(func(p events.ReservationEventPayload) bool {
			return p.ReservationID == "RES-001" && p.RequestedStatus == "ready" && p.Status == "pending"
		})).Return(nil).Once()

		require.NoError(t, svc.RequestStatusChange(ctx, "res-001", models.StatusReady))
		bus.AssertExpectations(t)

		res, _ := svc.Get(ctx, "RES-001")
		assert.Equal(t, models.StatusPending, res.Status)

		err := svc.RequestStatusChange(ctx, "RES-001", models.Status("lost"))
		assert.ErrorIs(t, err, ErrInvalidInput)
		err = svc.RequestStatusChange(ctx, "RES-999", models.StatusReady)
		assert.ErrorIs(t, err, repository.ErrReservationNotFound)
	})

	t.Run("AssignLocker", func(t *testing.T) {
		bus.On("PublishJSON", events.EventLockerAssigned, mock.MatchedBy(func(p events.ReservationEventPayload) bool {
			return p.LockerNumber == "L-07"
		})).Return(nil).Once()

		require.NoError(t, svc.AssignLocker(ctx, "RES-001", " L-07 "))
		bus.AssertExpectations(t)

		res, _ := svc.Get(ctx, "RES-001")
		assert.Empty(t, res.LockerNumber)

		assert.ErrorIs(t, svc.AssignLocker(ctx, "RES-001", ""), ErrInvalidInput)
	})

	t.Run("PersonalRequests", func(t *testing.T) {
		bus.On("PublishJSON", events.EventCancelRequested, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", events.EventExtendRequested, mock.Anything).Return(nil).Once()

		require.NoError(t, svc.RequestCancel(ctx, "RES-002"))
		require.NoError(t, svc.RequestExtend(ctx, "res-001"))
		bus.AssertExpectations(t)

		assert.ErrorIs(t, svc.RequestCancel(ctx, "RES-404"), repository.ErrReservationNotFound)
	})

	t.Run("PersonalRequestsOnlyWhenConfirmed", func(t *testing.T) {
		returned := seedReservations()[0]
		returned.ID = "RES-900"
		returned.Status = models.StatusReturned
		require.NoError(t, repo.AddReservation(ctx, &returned))

		for _, id := range []string{"RES-900", "RES-003", "RES-004"} {
			assert.ErrorIs(t, svc.RequestCancel(ctx, id), ErrActionNotAllowed, id)
			assert.ErrorIs(t, svc.RequestExtend(ctx, id), ErrActionNotAllowed, id)
		}
		bus.AssertExpectations(t)
	})
}
