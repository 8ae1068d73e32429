package mq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/stock-cart/pkg/ptr"
)

func TestBuildProduceRecord(t *testing.T) {
	t.Run("Should carry headers and key", func(t *testing.T) {
		r := buildProduceRecord(ProduceMsg{
			Topic:        "cart.purchased",
			Headers:      map[string]string{"X-Correlation-ID": "abc"},
			Payload:      []byte(`{"user_id":"u"}`),
			PartitionKey: ptr.New("u"),
		})

		assert.Equal(t, "cart.purchased", r.Topic)
		assert.Equal(t, []byte("u"), r.Key)
		assert.JSONEq(t, `{"user_id":"u"}`, string(r.Value))
		assert.Len(t, r.Headers, 1)
		assert.Equal(t, "X-Correlation-ID", r.Headers[0].Key)
		assert.Equal(t, []byte("abc"), r.Headers[0].Value)
	})

	t.Run("Should leave key empty without partition key", func(t *testing.T) {
		r := buildProduceRecord(ProduceMsg{Topic: "product.created"})

		assert.Nil(t, r.Key)
		assert.Empty(t, r.Headers)
	})
}
