package keygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountNumberFormat(t *testing.T) {
	number, err := AccountNumber("CH")
	require.NoError(t, err)

	assert.Len(t, number, 10)
	assert.Equal(t, "CH", number[:2])
	for _, r := range number[2:] {
		assert.True(t, r >= '0' && r <= '9', "suffix must be numeric: %s", number)
	}
}

func TestAccountNumberVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		number, err := AccountNumber("FN")
		require.NoError(t, err)
		seen[number] = true
	}
	assert.Greater(t, len(seen), 45, "generated numbers should rarely collide")
}
