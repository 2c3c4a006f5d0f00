package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 0, 10))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(42, 0, 10))
	assert.Equal(t, float32(1.5), Clamp(float32(1.5), 1.0, 2.0))
}

func TestMax(t *testing.T) {
	assert.Equal(t, uint32(64), Max(uint32(64), 12))
	assert.Equal(t, uint32(64), Max(uint32(12), 64))
}

func TestNextPow2(t *testing.T) {
	assert.Equal(t, uint32(1), NextPow2(0))
	assert.Equal(t, uint32(1), NextPow2(1))
	assert.Equal(t, uint32(2), NextPow2(2))
	assert.Equal(t, uint32(4), NextPow2(3))
	assert.Equal(t, uint32(64), NextPow2(64))
	assert.Equal(t, uint32(128), NextPow2(65))
}
