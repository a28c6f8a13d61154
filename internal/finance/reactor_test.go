package finance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/status"
)

func TestPaymentStatusFor(t *testing.T) {
	cases := []struct {
		state status.State
		want  string
	}{
		{status.Pending, PaymentPending},
		{status.Processing, PaymentPending},
		{status.Shipped, PaymentPending},
		{status.Delivered, PaymentSuccess},
		{status.Completed, PaymentSuccess},
		{status.Cancelled, PaymentCancelled},
		{status.Returned, PaymentRefunded},
		{status.Refunded, PaymentRefunded},
		{status.Unknown, PaymentPending},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PaymentStatusFor(tc.state), "state %s", tc.state)
	}
}

func TestInvoiceNumberShape(t *testing.T) {
	n := invoiceNumber("3f2b8c44-9d1a-4f6e-b2aa-91c0de59f001")
	parts := strings.Split(n, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "INV", parts[0])
	assert.Len(t, parts[1], 8)
	assert.Len(t, parts[2], 4)
	assert.Equal(t, n, strings.ToUpper(n))
}
