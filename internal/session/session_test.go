package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: RoleSupplier, Name: "Coast Hardware"}

	ctx := NewContext(context.Background(), actor)
	got, ok := FromContext(ctx)

	require.True(t, ok)
	require.Equal(t, actor, got)
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)
}

func TestCanMutateDelivery(t *testing.T) {
	supplierID := uuid.New()

	owner := Actor{UserID: supplierID, Role: RoleSupplier}
	require.True(t, owner.CanMutateDelivery(supplierID))

	otherSupplier := Actor{UserID: uuid.New(), Role: RoleSupplier}
	require.False(t, otherSupplier.CanMutateDelivery(supplierID))

	builder := Actor{UserID: supplierID, Role: RoleBuilder}
	require.False(t, builder.CanMutateDelivery(supplierID))

	admin := Actor{UserID: uuid.New(), Role: RoleAdmin}
	require.True(t, admin.CanMutateDelivery(supplierID))
}

func TestCanViewDelivery(t *testing.T) {
	supplierID := uuid.New()
	builderID := uuid.New()

	supplier := Actor{UserID: supplierID, Role: RoleSupplier}
	require.True(t, supplier.CanViewDelivery(supplierID, &builderID))

	builder := Actor{UserID: builderID, Role: RoleBuilder}
	require.True(t, builder.CanViewDelivery(supplierID, &builderID))

	stranger := Actor{UserID: uuid.New(), Role: RoleBuilder}
	require.False(t, stranger.CanViewDelivery(supplierID, &builderID))

	// Unassigned deliveries are visible to their supplier only
	require.True(t, supplier.CanViewDelivery(supplierID, nil))
	require.False(t, stranger.CanViewDelivery(supplierID, nil))

	admin := Actor{UserID: uuid.New(), Role: RoleAdmin}
	require.True(t, admin.CanViewDelivery(supplierID, &builderID))
}
