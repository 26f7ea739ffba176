package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededSourcesRepeat(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestIntNBounds(t *testing.T) {
	src := New(7)
	assert.Equal(t, 0, src.IntN(0))
	assert.Equal(t, 0, src.IntN(-3))
	for i := 0; i < 200; i++ {
		v := src.IntN(30)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 30)
	}
}

func TestPick(t *testing.T) {
	src := New(1)
	items := []string{"TCP", "UDP", "ICMP"}
	for i := 0; i < 20; i++ {
		assert.Contains(t, items, Pick(src, items))
	}
}
