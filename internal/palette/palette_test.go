package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
)

func TestNewProducesSixDigitHex(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		c := New()
		assert.Len(t, string(c), 7)
		assert.True(t, Valid(c), "generated %q", c)
	}
}

func TestRGBA(t *testing.T) {
	t.Parallel()

	assert.Equal(t, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}, RGBA("#123456"))
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0x00, B: 0xaa, A: 0xff}, RGBA("#FF00AA"))
	assert.Equal(t, fallback, RGBA("red"))
	assert.Equal(t, fallback, RGBA("#12345"))
	assert.Equal(t, fallback, RGBA("#zzzzzz"))

	r, g, b := RGB(nesting.Color("#0a0b0c"))
	assert.Equal(t, []int{10, 11, 12}, []int{r, g, b})
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Valid("#abcdef"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("abcdef"))
	assert.False(t, Valid("#abcdef00"))
}
