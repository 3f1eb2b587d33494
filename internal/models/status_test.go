package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	// Forward progression only
	require.True(t, StatusPending.CanTransitionTo(StatusPickedUp))
	require.True(t, StatusPickedUp.CanTransitionTo(StatusInTransit))
	require.True(t, StatusInTransit.CanTransitionTo(StatusOutForDelivery))
	require.True(t, StatusOutForDelivery.CanTransitionTo(StatusDelivered))

	// No skipping ahead or moving backwards
	require.False(t, StatusPending.CanTransitionTo(StatusInTransit))
	require.False(t, StatusPending.CanTransitionTo(StatusDelivered))
	require.False(t, StatusInTransit.CanTransitionTo(StatusPickedUp))
	require.False(t, StatusDelivered.CanTransitionTo(StatusOutForDelivery))

	// No self transitions
	require.False(t, StatusInTransit.CanTransitionTo(StatusInTransit))
}

func TestCancellation(t *testing.T) {
	// Every non-terminal status can be cancelled
	require.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	require.True(t, StatusPickedUp.CanTransitionTo(StatusCancelled))
	require.True(t, StatusInTransit.CanTransitionTo(StatusCancelled))
	require.True(t, StatusOutForDelivery.CanTransitionTo(StatusCancelled))

	// Terminal statuses stay terminal
	require.False(t, StatusDelivered.CanTransitionTo(StatusCancelled))
	require.False(t, StatusCancelled.CanTransitionTo(StatusPending))
}

func TestIsTerminal(t *testing.T) {
	require.True(t, StatusDelivered.IsTerminal())
	require.True(t, StatusCancelled.IsTerminal())
	require.False(t, StatusPending.IsTerminal())
	require.False(t, StatusOutForDelivery.IsTerminal())
}

func TestIsValid(t *testing.T) {
	for _, status := range []DeliveryStatus{
		StatusPending, StatusPickedUp, StatusInTransit,
		StatusOutForDelivery, StatusDelivered, StatusCancelled,
	} {
		require.True(t, status.IsValid(), "expected %s to be valid", status)
	}

	require.False(t, DeliveryStatus("").IsValid())
	require.False(t, DeliveryStatus("shipped").IsValid())
	require.False(t, DeliveryStatus("PENDING").IsValid())
}

func TestNextStatuses(t *testing.T) {
	next := StatusPending.NextStatuses()
	require.ElementsMatch(t, []DeliveryStatus{StatusPickedUp, StatusCancelled}, next)

	require.Empty(t, StatusDelivered.NextStatuses())
	require.Empty(t, StatusCancelled.NextStatuses())
}

func TestLabel(t *testing.T) {
	require.Equal(t, "Out for Delivery", StatusOutForDelivery.Label())
	require.Equal(t, "Picked Up", StatusPickedUp.Label())
}
