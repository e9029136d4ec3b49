package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusProcessing, StatusProcessing, false},
		{StatusCancelled, StatusCancelled, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, StatusProcessing.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestComputeAmount(t *testing.T) {
	items := []OrderItem{
		{Name: "mug", Quantity: 2, Price: 10},
		{Name: "coaster", Quantity: 1, Price: 5},
	}
	assert.Equal(t, 25.0, ComputeAmount(items))

	assert.Equal(t, 0.0, ComputeAmount(nil))
	assert.Equal(t, 0.0, ComputeAmount([]OrderItem{{Name: "free", Quantity: 5, Price: 0}}))
}

func TestNewOrderID(t *testing.T) {
	id1 := NewOrderID()
	id2 := NewOrderID()

	assert.True(t, strings.HasPrefix(id1, "ORD-"))
	assert.Equal(t, strings.ToUpper(id1), id1)
	assert.NotEqual(t, id1, id2)
}
