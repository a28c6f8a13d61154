package orders

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/accounts"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/inventory"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/postgres"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/status"
)

// The tests below run against a real Postgres and are skipped when none
// is reachable (set POSTGRES_DSN to enable them).

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	pool, err := postgres.Connect(context.Background(), dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	require.NoError(t, postgres.ApplySchema(context.Background(), pool))
	t.Cleanup(pool.Close)
	return pool
}

type fixture struct {
	t    *testing.T
	pool *pgxpool.Pool
	ctx  context.Context

	customer string
	sellerA  string
	sellerB  string
}

func newFixture(t *testing.T, pool *pgxpool.Pool) *fixture {
	f := &fixture{t: t, pool: pool, ctx: context.Background()}
	f.customer = f.seedUser("customer")
	f.sellerA = f.seedUser("seller")
	f.sellerB = f.seedUser("seller")
	f.seedAddress(f.customer, true)
	f.seedPaymentMethod(f.customer, true)
	return f
}

func (f *fixture) exec(sql string, args ...any) {
	f.t.Helper()
	_, err := f.pool.Exec(f.ctx, sql, args...)
	require.NoError(f.t, err)
}

func (f *fixture) seedUser(userType string) string {
	id := uuid.NewString()
	f.exec(`INSERT INTO users(id, username, user_type) VALUES ($1, $2, $3)`,
		id, userType+"-"+id[:8], userType)
	return id
}

func (f *fixture) seedAddress(userID string, isDefault bool) string {
	id := uuid.NewString()
	f.exec(`INSERT INTO addresses(id, user_id, line1, city, country, is_default)
	        VALUES ($1, $2, '1 Test St', 'Cairo', 'EG', $3)`, id, userID, isDefault)
	return id
}

func (f *fixture) seedPaymentMethod(userID string, isDefault bool) string {
	id := uuid.NewString()
	f.exec(`INSERT INTO payment_methods(id, user_id, provider, display_label, is_default)
	        VALUES ($1, $2, 'cod', 'Cash on Delivery', $3)`, id, userID, isDefault)
	return id
}

func (f *fixture) seedSKU(sellerID string, priceCents int64, stock int, published bool) string {
	productID := uuid.NewString()
	f.exec(`INSERT INTO products(id, seller_id, name, is_published)
	        VALUES ($1, $2, $3, $4)`, productID, sellerID, "product-"+productID[:8], published)
	skuID := uuid.NewString()
	f.exec(`INSERT INTO skus(id, product_id, code, price_cents, qty_in_stock)
	        VALUES ($1, $2, $3, $4, $5)`, skuID, productID, "SKU-"+skuID[:8], priceCents, stock)
	return skuID
}

func (f *fixture) fillCart(userID string, items map[string]int) {
	cartID := uuid.NewString()
	f.exec(`INSERT INTO carts(id, user_id) VALUES ($1, $2)
	        ON CONFLICT (user_id) DO NOTHING`, cartID, userID)
	var realCartID string
	require.NoError(f.t, f.pool.QueryRow(f.ctx,
		`SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&realCartID))
	for skuID, qty := range items {
		f.exec(`INSERT INTO cart_items(id, cart_id, sku_id, qty) VALUES ($1, $2, $3, $4)
		        ON CONFLICT (cart_id, sku_id) DO UPDATE SET qty = EXCLUDED.qty`,
			uuid.NewString(), realCartID, skuID, qty)
	}
}

func (f *fixture) stock(skuID string) int {
	var n int
	require.NoError(f.t, f.pool.QueryRow(f.ctx,
		`SELECT qty_in_stock FROM skus WHERE id = $1`, skuID).Scan(&n))
	return n
}

func (f *fixture) cartItemCount(userID string) int {
	var n int
	require.NoError(f.t, f.pool.QueryRow(f.ctx, `
		SELECT COUNT(*) FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1`, userID).Scan(&n))
	return n
}

func (f *fixture) paymentStatus(orderID string) string {
	var label string
	require.NoError(f.t, f.pool.QueryRow(f.ctx, `
		SELECT ps.label FROM transactions t
		JOIN payment_statuses ps ON ps.id = t.payment_status_id
		WHERE t.order_id = $1`, orderID).Scan(&label))
	return label
}

func (f *fixture) invoiceCount(orderID string) int {
	var n int
	require.NoError(f.t, f.pool.QueryRow(f.ctx,
		`SELECT COUNT(*) FROM invoices WHERE order_id = $1`, orderID).Scan(&n))
	return n
}

func TestCheckoutReservesStock(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	sku := f.seedSKU(f.sellerA, 2500, 100, true)
	f.fillCart(f.customer, map[string]int{sku: 2})

	co := &CheckoutRepo{DB: pool}
	view, err := co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)

	assert.Equal(t, "pending", view.Status)
	assert.Equal(t, int64(5000), view.TotalCents)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Qty)
	assert.Equal(t, int64(2500), view.Lines[0].UnitPriceCents)
	assert.Equal(t, "pending", view.Lines[0].Status)

	assert.Equal(t, 98, f.stock(sku))
	assert.Equal(t, 0, f.cartItemCount(f.customer))
	assert.Equal(t, "Pending", f.paymentStatus(view.OrderID))
}

func TestCheckoutInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	sku := f.seedSKU(f.sellerA, 2500, 1, true)
	f.fillCart(f.customer, map[string]int{sku: 2})

	co := &CheckoutRepo{DB: pool}
	_, err := co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 1, f.stock(sku))
	assert.Equal(t, 1, f.cartItemCount(f.customer))
}

func TestCheckoutExactStockBoundary(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	sku := f.seedSKU(f.sellerA, 1000, 5, true)
	f.fillCart(f.customer, map[string]int{sku: 5})

	co := &CheckoutRepo{DB: pool}
	_, err := co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(sku))

	// One more unit than available must fail.
	f.fillCart(f.customer, map[string]int{sku: 1})
	_, err = co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, f.stock(sku))
}

func TestCheckoutUnpublishedProduct(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	sku := f.seedSKU(f.sellerA, 1000, 10, false)
	f.fillCart(f.customer, map[string]int{sku: 1})

	co := &CheckoutRepo{DB: pool}
	_, err := co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	var unavailable *ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 10, f.stock(sku))
}

func TestCheckoutRequiresAddress(t *testing.T) {
	pool := testPool(t)
	f := &fixture{t: t, pool: pool, ctx: context.Background()}
	f.customer = f.seedUser("customer")
	f.sellerA = f.seedUser("seller")
	f.seedPaymentMethod(f.customer, true)
	sku := f.seedSKU(f.sellerA, 1000, 10, true)
	f.fillCart(f.customer, map[string]int{sku: 1})

	co := &CheckoutRepo{DB: pool}
	_, err := co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	assert.ErrorIs(t, err, accounts.ErrNoAddress)
	assert.Equal(t, 10, f.stock(sku))
	assert.Equal(t, 1, f.cartItemCount(f.customer))
}

func TestCancelOrderRestoresStock(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	sku := f.seedSKU(f.sellerA, 2000, 100, true)
	f.fillCart(f.customer, map[string]int{sku: 3})

	co := &CheckoutRepo{DB: pool}
	view, err := co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)
	require.Equal(t, 97, f.stock(sku))

	ful := &FulfillmentRepo{DB: pool}
	view, change, err := ful.SetOrderStatus(f.ctx, SetOrderStatusInput{
		OrderID: view.OrderID, SellerID: f.sellerA, NewStatus: "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", view.Status)
	assert.Equal(t, status.Cancelled, change.OrderTo)
	assert.Equal(t, 100, f.stock(sku))
	assert.Equal(t, "Cancelled", f.paymentStatus(view.OrderID))
}

func TestMultiVendorOrderBlocksWholeOrderUpdate(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	skuA := f.seedSKU(f.sellerA, 1000, 100, true)
	skuB := f.seedSKU(f.sellerB, 1500, 100, true)
	f.fillCart(f.customer, map[string]int{skuA: 1, skuB: 2})

	co := &CheckoutRepo{DB: pool}
	view, err := co.Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)

	ful := &FulfillmentRepo{DB: pool}
	_, _, err = ful.SetOrderStatus(f.ctx, SetOrderStatusInput{
		OrderID: view.OrderID, SellerID: f.sellerA, NewStatus: "shipped",
	})
	assert.ErrorIs(t, err, ErrMultiVendorOrder)

	// A seller with no lines at all gets the plain authorization error.
	stranger := f.seedUser("seller")
	_, _, err = ful.SetOrderStatus(f.ctx, SetOrderStatusInput{
		OrderID: view.OrderID, SellerID: stranger, NewStatus: "shipped",
	})
	assert.ErrorIs(t, err, ErrNotOrderSeller)

	refreshed, err := (&Repo{DB: pool}).GetOrderView(f.ctx, view.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "pending", refreshed.Status)
}

func TestPartialFulfillmentAggregatesToShipped(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	skuA := f.seedSKU(f.sellerA, 1000, 100, true)
	skuB := f.seedSKU(f.sellerB, 1500, 100, true)
	f.fillCart(f.customer, map[string]int{skuA: 1, skuB: 1})

	view, err := (&CheckoutRepo{DB: pool}).Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)

	var lineA string
	for _, l := range view.Lines {
		if l.SellerID == f.sellerA {
			lineA = l.LineID
		}
	}
	require.NotEmpty(t, lineA)

	ful := &FulfillmentRepo{DB: pool}
	view, _, err = ful.SetLineStatus(f.ctx, SetLineStatusInput{
		OrderID: view.OrderID, LineID: lineA, SellerID: f.sellerA, NewStatus: "shipped",
	})
	require.NoError(t, err)
	assert.Equal(t, "shipped", view.Status)

	view, change, err := ful.SetLineStatus(f.ctx, SetLineStatusInput{
		OrderID: view.OrderID, LineID: lineA, SellerID: f.sellerA, NewStatus: "delivered",
	})
	require.NoError(t, err)
	// Seller B's line is still pending, so the order stays shipped.
	assert.Equal(t, "shipped", view.Status)
	assert.Equal(t, status.Shipped, change.OrderTo)
	assert.Equal(t, "Pending", f.paymentStatus(view.OrderID))
}

func TestCancelSingleLineRestoresOnlyItsSKU(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	skuA := f.seedSKU(f.sellerA, 1000, 100, true)
	skuB := f.seedSKU(f.sellerB, 1500, 100, true)
	f.fillCart(f.customer, map[string]int{skuA: 2, skuB: 1})

	view, err := (&CheckoutRepo{DB: pool}).Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)
	require.Equal(t, 98, f.stock(skuA))
	require.Equal(t, 99, f.stock(skuB))

	var lineA string
	for _, l := range view.Lines {
		if l.SellerID == f.sellerA {
			lineA = l.LineID
		}
	}

	ful := &FulfillmentRepo{DB: pool}
	_, _, err = ful.SetLineStatus(f.ctx, SetLineStatusInput{
		OrderID: view.OrderID, LineID: lineA, SellerID: f.sellerA, NewStatus: "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, f.stock(skuA))
	assert.Equal(t, 99, f.stock(skuB))

	// Requesting the same status again is a no-op: no double restore.
	_, _, err = ful.SetLineStatus(f.ctx, SetLineStatusInput{
		OrderID: view.OrderID, LineID: lineA, SellerID: f.sellerA, NewStatus: "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, f.stock(skuA))
}

func TestLineOwnershipEnforced(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	skuA := f.seedSKU(f.sellerA, 1000, 100, true)
	f.fillCart(f.customer, map[string]int{skuA: 1})

	view, err := (&CheckoutRepo{DB: pool}).Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)

	ful := &FulfillmentRepo{DB: pool}
	_, _, err = ful.SetLineStatus(f.ctx, SetLineStatusInput{
		OrderID: view.OrderID, LineID: view.Lines[0].LineID, SellerID: f.sellerB, NewStatus: "shipped",
	})
	assert.ErrorIs(t, err, ErrNotLineOwner)
}

func TestInvalidTransitionRejectedBeforeMutation(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	sku := f.seedSKU(f.sellerA, 1000, 100, true)
	f.fillCart(f.customer, map[string]int{sku: 1})

	view, err := (&CheckoutRepo{DB: pool}).Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)

	ful := &FulfillmentRepo{DB: pool}
	_, _, err = ful.SetLineStatus(f.ctx, SetLineStatusInput{
		OrderID: view.OrderID, LineID: view.Lines[0].LineID, SellerID: f.sellerA, NewStatus: "refunded",
	})
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, status.Pending, invalid.From)
	assert.Equal(t, status.Refunded, invalid.To)

	refreshed, err := (&Repo{DB: pool}).GetOrderView(f.ctx, view.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "pending", refreshed.Lines[0].Status)
}

func TestDeliveredOrderIssuesExactlyOneInvoice(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	sku := f.seedSKU(f.sellerA, 3000, 100, true)
	f.fillCart(f.customer, map[string]int{sku: 1})

	view, err := (&CheckoutRepo{DB: pool}).Checkout(f.ctx, CheckoutInput{UserID: f.customer})
	require.NoError(t, err)

	ful := &FulfillmentRepo{DB: pool}
	view, _, err = ful.SetOrderStatus(f.ctx, SetOrderStatusInput{
		OrderID: view.OrderID, SellerID: f.sellerA, NewStatus: "shipped",
		ShippingCarrier: ptr("aramex"), TrackingNumber: ptr("TRK-1"),
	})
	require.NoError(t, err)
	require.NotNil(t, view.ShippedAt)
	require.NotNil(t, view.ShippingCarrier)
	assert.Equal(t, "aramex", *view.ShippingCarrier)

	view, change, err := ful.SetOrderStatus(f.ctx, SetOrderStatusInput{
		OrderID: view.OrderID, SellerID: f.sellerA, NewStatus: "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, "Success", f.paymentStatus(view.OrderID))
	assert.True(t, change.InvoiceIssued)
	assert.Equal(t, 1, f.invoiceCount(view.OrderID))

	// Re-asserting the same status must not issue a second invoice.
	_, change, err = ful.SetOrderStatus(f.ctx, SetOrderStatusInput{
		OrderID: view.OrderID, SellerID: f.sellerA, NewStatus: "delivered",
	})
	require.NoError(t, err)
	assert.False(t, change.InvoiceIssued)
	assert.Equal(t, 1, f.invoiceCount(view.OrderID))
}

func ptr(s string) *string { return &s }
