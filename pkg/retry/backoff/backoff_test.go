package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstant(t *testing.T) {
	s := Constant(100 * time.Millisecond)

	for i := uint(1); i < 10; i++ {
		assert.Equal(t, 100*time.Millisecond, s(i))
	}
}

func TestLinear(t *testing.T) {
	s := Linear(500 * time.Millisecond)

	for i, expected := range []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		1500 * time.Millisecond,
		2 * time.Second,
	} {
		assert.Equal(t, expected, s(uint(i+1)))
	}
}

func TestExponential(t *testing.T) {
	s := Exponential(2*time.Second, 3.0)

	for i, expected := range []time.Duration{
		2 * time.Second,
		6 * time.Second,
		18 * time.Second,
		54 * time.Second,
	} {
		assert.Equal(t, expected, s(uint(i+1)))
	}
}

func TestBinaryExponential(t *testing.T) {
	s := BinaryExponential(time.Second)

	for i, expected := range []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	} {
		assert.Equal(t, expected, s(uint(i+1)))
	}
}
