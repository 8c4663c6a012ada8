package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetsOnPut(t *testing.T) {
	p := NewHotPool(func() []int { return make([]int, 0, 4) }, 2).
		WithReset(func(s []int) { clear(s) })
	assert.Equal(t, int64(2), p.Created())

	s := p.Get()
	s = append(s, 1, 2, 3)
	p.Put(s)
	assert.Equal(t, []int{0, 0, 0}, s)
}

func TestPoolGeneratesOnDemand(t *testing.T) {
	p := NewPool(func() *int { return new(int) })
	v := p.Get()
	assert.NotNil(t, v)
	assert.Equal(t, int64(1), p.Created())
}
