package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	v := "pending"
	p := Ptr(v)

	assert.Equal(t, "pending", *p)

	*p = "failed"
	assert.Equal(t, "pending", v)
}
