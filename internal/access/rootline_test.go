package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
)

func TestParseRoundTrip(t *testing.T) {
	for _, in := range []string{"c:0", "12:1,2/c:0", "3:-2/7:4/r:5,6", "12:"} {
		t.Run(in, func(t *testing.T) {
			rl, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, in, rl.String())
		})
	}
}

func TestParseEmpty(t *testing.T) {
	rl, err := Parse("   ")
	require.NoError(t, err)
	assert.Empty(t, rl.Elements())
	assert.Equal(t, "", rl.String())
	assert.Nil(t, rl.Groups())
}

func TestParseElements(t *testing.T) {
	rl, err := Parse(" 12:1, 2/c:0 ")
	require.NoError(t, err)
	assert.Equal(t, []Element{
		{Type: ElementPage, PageID: 12, Groups: []int{1, 2}},
		{Type: ElementContent, Groups: []int{0}},
	}, rl.Elements())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"12", "x:1", "-1:2", "c:1,a", "c:0//r:1"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestGroupsConcatenatesInOrder(t *testing.T) {
	rl := NewRootline(
		Element{Type: ElementPage, PageID: 1, Groups: []int{3, 1}},
		Element{Type: ElementContent, Groups: []int{1, 0, 2}},
	)
	assert.Equal(t, []int{3, 1, 1, 0, 2}, rl.Groups())
}

func TestCleanGroupArray(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want []int
	}{
		{"nil", nil, []int{}},
		{"only placeholder", []int{0, 0}, []int{}},
		{"dedupe keeps first seen", []int{3, 1, 3, 2, 1}, []int{3, 1, 2}},
		{"keeps negative special groups", []int{-2, 0, 4}, []int{-2, 4}},
		{"does not sort", []int{5, 2}, []int{5, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanGroupArray(tt.in))
		})
	}
}
