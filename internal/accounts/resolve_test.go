package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExplicitWins(t *testing.T) {
	id, err := Resolve("b", []Candidate{{ID: "a", Default: true}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestResolveExplicitMustBeOwned(t *testing.T) {
	_, err := Resolve("zz", []Candidate{{ID: "a"}, {ID: "b"}})
	assert.ErrorIs(t, err, errNotOwned)
}

func TestResolveDefaultBeatsFirst(t *testing.T) {
	id, err := Resolve("", []Candidate{{ID: "a"}, {ID: "b", Default: true}})
	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestResolveFallsBackToFirst(t *testing.T) {
	id, err := Resolve("", []Candidate{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestResolveEmpty(t *testing.T) {
	_, err := Resolve("", nil)
	assert.ErrorIs(t, err, errNoCandidates)

	_, err = Resolve("a", nil)
	assert.ErrorIs(t, err, errNotOwned)
}
