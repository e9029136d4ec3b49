package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOrderRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		Customer: &CustomerInput{Name: "Alice", Email: "alice@example.com"},
		Items: []OrderItem{
			{Name: "mug", Quantity: 2, Price: 10},
		},
		Shipping: &Shipping{Address: "1 Main St", Method: "standard"},
		Payment:  &Payment{Method: "card", Status: "paid", Last4: "4242"},
	}
}

func TestCreateOrderRequest_Validate(t *testing.T) {
	require.NoError(t, validOrderRequest().Validate())
}

func TestCreateOrderRequest_Validate_FieldOrder(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *CreateOrderRequest)
		wantMsg string
	}{
		{
			name:    "missing customer",
			mutate:  func(r *CreateOrderRequest) { r.Customer = nil },
			wantMsg: "missing required field: customer",
		},
		{
			name:    "missing customer name",
			mutate:  func(r *CreateOrderRequest) { r.Customer.Name = "" },
			wantMsg: "missing required field: customer.name",
		},
		{
			name:    "invalid customer email",
			mutate:  func(r *CreateOrderRequest) { r.Customer.Email = "not-an-email" },
			wantMsg: "customer.email: invalid email",
		},
		{
			name:    "empty items",
			mutate:  func(r *CreateOrderRequest) { r.Items = nil },
			wantMsg: "missing required field: items",
		},
		{
			name:    "item missing name",
			mutate:  func(r *CreateOrderRequest) { r.Items[0].Name = "" },
			wantMsg: "missing required field: items[0].name",
		},
		{
			name:    "item zero quantity",
			mutate:  func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 },
			wantMsg: "items[0].quantity: must be at least 1",
		},
		{
			name:    "item negative price",
			mutate:  func(r *CreateOrderRequest) { r.Items[0].Price = -1 },
			wantMsg: "items[0].price: must not be negative",
		},
		{
			name:    "missing shipping",
			mutate:  func(r *CreateOrderRequest) { r.Shipping = nil },
			wantMsg: "missing required field: shipping",
		},
		{
			name:    "missing shipping address",
			mutate:  func(r *CreateOrderRequest) { r.Shipping.Address = "" },
			wantMsg: "missing required field: shipping.address",
		},
		{
			name:    "missing shipping method",
			mutate:  func(r *CreateOrderRequest) { r.Shipping.Method = "" },
			wantMsg: "missing required field: shipping.method",
		},
		{
			name:    "missing payment",
			mutate:  func(r *CreateOrderRequest) { r.Payment = nil },
			wantMsg: "missing required field: payment",
		},
		{
			name:    "missing payment method",
			mutate:  func(r *CreateOrderRequest) { r.Payment.Method = "" },
			wantMsg: "missing required field: payment.method",
		},
		{
			name:    "missing payment status",
			mutate:  func(r *CreateOrderRequest) { r.Payment.Status = "" },
			wantMsg: "missing required field: payment.status",
		},
		{
			name:    "payment last4 too long",
			mutate:  func(r *CreateOrderRequest) { r.Payment.Last4 = "12345" },
			wantMsg: "payment.last4: must be the last 4 digits only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validOrderRequest()
			tt.mutate(req)
			err := req.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateOrderRequest_Validate_SecondItemIndexed(t *testing.T) {
	req := validOrderRequest()
	req.Items = append(req.Items, OrderItem{Name: "coaster", Quantity: 0, Price: 5})
	err := req.Validate()
	require.Error(t, err)
	assert.Equal(t, "items[1].quantity: must be at least 1", err.Error())
}

func TestUpdateOrderRequest_Validate(t *testing.T) {
	completed := StatusCompleted
	assert.NoError(t, (&UpdateOrderRequest{Status: &completed}).Validate())
	assert.NoError(t, (&UpdateOrderRequest{}).Validate())

	shipped := OrderStatus("shipped")
	err := (&UpdateOrderRequest{Status: &shipped}).Validate()
	require.Error(t, err)
	assert.Equal(t, "status: must be one of processing, completed, cancelled", err.Error())
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("alice@example.com"))
	assert.True(t, ValidateEmail("  alice@example.com  "))

	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("alice"))
	assert.False(t, ValidateEmail("@example.com"))
	assert.False(t, ValidateEmail("alice@"))
	assert.False(t, ValidateEmail("a@b@c.com"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice"))
	assert.NoError(t, ValidateUsername("alice.smith-01"))

	assert.ErrorIs(t, ValidateUsername("ab"), ErrUsernameTooShort)
	assert.ErrorIs(t, ValidateUsername(string(make([]byte, 33))), ErrUsernameTooLong)
	assert.ErrorIs(t, ValidateUsername("1alice"), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateUsername("alice_"), ErrInvalidUsername)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(string(make([]byte, 129))), ErrPasswordTooLong)
}

func TestCreateProductRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CreateProductRequest{Name: "mug", Price: 9.5, Stock: 3}).Validate())

	err := (&CreateProductRequest{}).Validate()
	require.Error(t, err)
	assert.Equal(t, "missing required field: name", err.Error())

	err = (&CreateProductRequest{Name: "mug", Price: -1}).Validate()
	require.Error(t, err)
	assert.Equal(t, "price: must not be negative", err.Error())

	err = (&CreateProductRequest{Name: "mug", Stock: -1}).Validate()
	require.Error(t, err)
	assert.Equal(t, "stock: must not be negative", err.Error())
}
