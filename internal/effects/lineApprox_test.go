package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_lineApprox(t *testing.T) {

	t.Run("should hit both ends and never leave the range", func(t *testing.T) {
		for start := 0; start <= 100; start += 7 {
			for stop := 0; stop <= 100; stop += 9 {
				for _, d := range []uint16{1, 2, 3, 10, 25, 333, 1023} {
					s, e := uint8(start), uint8(stop)
					assert.Equal(t, s, lineApprox(s, e, d, 0))
					assert.Equal(t, e, lineApprox(s, e, d, d))

					prev := s
					for tk := uint16(1); tk <= d; tk++ {
						l := lineApprox(s, e, d, tk)
						if e >= s {
							assert.GreaterOrEqual(t, l, prev)
							assert.LessOrEqual(t, l, e)
						} else {
							assert.LessOrEqual(t, l, prev)
							assert.GreaterOrEqual(t, l, e)
						}
						prev = l
					}
				}
			}
		}
	})
}

func Test_PercentToLevel(t *testing.T) {
	assert.Equal(t, uint8(0), PercentToLevel(0))
	assert.Equal(t, uint8(127), PercentToLevel(50))
	assert.Equal(t, uint8(254), PercentToLevel(100))
	assert.Equal(t, uint8(3), PercentToLevel(1))
}
