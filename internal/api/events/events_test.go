// Test cơ chế phát sự kiện thay đổi dữ liệu.
package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDataChanged_InvokesRegisteredHandler(t *testing.T) {
	got := make(chan DataChangeEvent, 1)
	OnDataChanged(func(ctx context.Context, e DataChangeEvent) {
		if e.CollectionName == "test_collection_invoke" {
			got <- e
		}
	})

	EmitDataChanged(context.Background(), DataChangeEvent{
		CollectionName: "test_collection_invoke",
		Operation:      OpInsert,
		Document:       "doc",
	})

	select {
	case e := <-got:
		assert.Equal(t, OpInsert, e.Operation)
		assert.Equal(t, "doc", e.Document)
	case <-time.After(time.Second):
		require.Fail(t, "handler đã đăng ký phải được gọi khi có sự kiện")
	}
}

func TestEmitDataChanged_PanicDoesNotBlockOtherHandlers(t *testing.T) {
	got := make(chan struct{}, 1)
	OnDataChanged(func(ctx context.Context, e DataChangeEvent) {
		if e.CollectionName == "test_collection_panic" {
			panic("handler hỏng")
		}
	})
	OnDataChanged(func(ctx context.Context, e DataChangeEvent) {
		if e.CollectionName == "test_collection_panic" {
			got <- struct{}{}
		}
	})

	EmitDataChanged(context.Background(), DataChangeEvent{
		CollectionName: "test_collection_panic",
		Operation:      OpUpdate,
	})

	select {
	case <-got:
	case <-time.After(time.Second):
		require.Fail(t, "một handler panic không được chặn các handler còn lại")
	}
}
