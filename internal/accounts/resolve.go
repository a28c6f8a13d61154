// Package accounts resolves the shipping address and payment method used
// at checkout. Profile CRUD lives elsewhere; checkout only needs one
// well-defined precedence: explicit id, else the default, else the first
// one on record.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrAddressNotFound       = errors.New("accounts: shipping address not found for user")
	ErrPaymentMethodNotFound = errors.New("accounts: payment method not found for user")
	ErrNoAddress             = errors.New("accounts: user has no address on record")
	ErrNoPaymentMethod       = errors.New("accounts: user has no payment method on record")

	errNotOwned     = errors.New("explicit id does not belong to user")
	errNoCandidates = errors.New("no candidates")
)

// Candidate is one address or payment method owned by the user, in
// creation order.
type Candidate struct {
	ID      string
	Default bool
}

// Resolve applies the precedence order to a user's candidates. Pure so it
// can be tested without persistence.
func Resolve(explicitID string, candidates []Candidate) (string, error) {
	if explicitID != "" {
		for _, c := range candidates {
			if c.ID == explicitID {
				return c.ID, nil
			}
		}
		return "", errNotOwned
	}
	for _, c := range candidates {
		if c.Default {
			return c.ID, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0].ID, nil
	}
	return "", errNoCandidates
}

// ResolveShippingAddress picks the shipping address for a checkout.
func ResolveShippingAddress(ctx context.Context, tx pgx.Tx, userID, explicitID string) (string, error) {
	candidates, err := loadCandidates(ctx, tx,
		`SELECT id, is_default FROM addresses WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return "", fmt.Errorf("load addresses: %w", err)
	}
	id, err := Resolve(explicitID, candidates)
	switch {
	case errors.Is(err, errNotOwned):
		return "", ErrAddressNotFound
	case errors.Is(err, errNoCandidates):
		return "", ErrNoAddress
	case err != nil:
		return "", err
	}
	return id, nil
}

// ResolvePaymentMethod picks the payment method for a checkout.
func ResolvePaymentMethod(ctx context.Context, tx pgx.Tx, userID, explicitID string) (string, error) {
	candidates, err := loadCandidates(ctx, tx,
		`SELECT id, is_default FROM payment_methods WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return "", fmt.Errorf("load payment methods: %w", err)
	}
	id, err := Resolve(explicitID, candidates)
	switch {
	case errors.Is(err, errNotOwned):
		return "", ErrPaymentMethodNotFound
	case errors.Is(err, errNoCandidates):
		return "", ErrNoPaymentMethod
	case err != nil:
		return "", err
	}
	return id, nil
}

func loadCandidates(ctx context.Context, tx pgx.Tx, query, userID string) ([]Candidate, error) {
	rows, err := tx.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Default); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
