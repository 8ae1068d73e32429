package ptr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/stock-cart/pkg/ptr"
)

func TestOr(t *testing.T) {
	assert.Equal(t, "patched", ptr.Or(ptr.New("patched"), "current"))
	assert.Equal(t, "current", ptr.Or(nil, "current"))
	assert.Equal(t, 0, ptr.Or(ptr.New(0), 7))
}
