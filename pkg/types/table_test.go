package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTableID(t *testing.T) {
	for _, ok := range []string{"7", " VIP1 ", "T-3", "Takeout", "patio_2", "Bar 4"} {
		id, err := NormalizeTableID(ok)
		require.NoError(t, err, ok)
		require.Equal(t, strings.TrimSpace(ok), id)
	}
	for _, bad := range []string{"", "   ", "-3", "table/3", "a<script>", strings.Repeat("x", MaxTableIDLength+1)} {
		_, err := NormalizeTableID(bad)
		require.Error(t, err, bad)
	}
}
