package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		label string
		want  State
	}{
		{"pending", Pending},
		{"Pending", Pending},
		{"  SHIPPED  ", Shipped},
		{"shipping", Shipped},
		{"تم الشحن", Shipped},
		{"delivered", Delivered},
		{"تم التسليم", Delivered},
		{"canceled", Cancelled},
		{"cancelled", Cancelled},
		{"ملغي", Cancelled},
		{"returned", Returned},
		{"استرجاع", Returned},
		{"refund", Refunded},
		{"completed", Completed},
		{"processing", Processing},
		{"", Unknown},
		{"awaiting pigeons", Unknown},
		{"pre-return check", Unknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.label), "label %q", tc.label)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{Pending, Processing},
		{Pending, Shipped},
		{Pending, Cancelled},
		{Processing, Shipped},
		{Processing, Cancelled},
		{Shipped, Delivered},
		{Shipped, Returned},
		{Delivered, Completed},
		{Delivered, Returned},
		{Delivered, Refunded},
		{Completed, Returned},
		{Completed, Refunded},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	rejected := []struct{ from, to State }{
		{Pending, Delivered},
		{Pending, Returned},
		{Pending, Refunded},
		{Processing, Pending},
		{Shipped, Pending},
		{Shipped, Cancelled},
		{Delivered, Shipped},
		{Delivered, Cancelled},
		{Cancelled, Pending},
		{Cancelled, Shipped},
		{Returned, Refunded},
		{Refunded, Pending},
	}
	for _, tc := range rejected {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestCanTransitionSameStateIsNoOp(t *testing.T) {
	for _, s := range Canonical {
		assert.True(t, CanTransition(s, s), "%s -> %s", s, s)
	}
}

func TestCanTransitionUnknownIsUnconstrained(t *testing.T) {
	assert.True(t, CanTransition(Unknown, Delivered))
	assert.True(t, CanTransition(Cancelled, Unknown))
	assert.True(t, CanTransition(Unknown, Unknown))
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name  string
		lines []State
		want  State
	}{
		{"no lines", nil, Pending},
		{"all cancelled", []State{Cancelled, Cancelled}, Cancelled},
		{"refunded wins over returned", []State{Refunded, Returned, Pending}, Refunded},
		{"any returned", []State{Returned, Delivered}, Returned},
		{"all delivered or completed", []State{Delivered, Completed}, Delivered},
		{"partial fulfillment", []State{Shipped, Pending}, Shipped},
		{"one seller delivered, other pending", []State{Delivered, Pending}, Shipped},
		{"any processing", []State{Processing, Pending}, Processing},
		{"all pending", []State{Pending, Pending}, Pending},
		{"unknown counts as pending", []State{Unknown, Shipped}, Shipped},
		{"single cancelled line", []State{Cancelled}, Cancelled},
		{"cancelled beside pending is not cancelled", []State{Cancelled, Pending}, Pending},
		{"cancelled beside shipped", []State{Cancelled, Shipped}, Shipped},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Aggregate(tc.lines))
		})
	}
}
