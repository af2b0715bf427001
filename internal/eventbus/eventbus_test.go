package eventbus

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	// Тест создания события
	ev := NewEnvelope(EventClientConnected, "client-1")

	assert.NotEmpty(t, ev.ID, "событие должно получать уникальный идентификатор")
	assert.Equal(t, EventClientConnected, ev.EventType, "тип события должен совпадать")
	assert.Equal(t, "client-1", ev.ClientID, "связанный клиент должен совпадать")
	assert.Equal(t, "arena-server", ev.Source, "источник должен быть заполнен")
	assert.False(t, ev.Timestamp.IsZero(), "метка времени должна быть заполнена")
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	// Тест доставки события подписчику
	bus := NewMemoryBus(16)

	received := make(chan *Envelope, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err, "подписка должна создаваться")
	defer sub.Unsubscribe()

	err = bus.Publish(context.Background(), NewEnvelope(EventResyncForced, "client-1"))
	require.NoError(t, err, "публикация не должна возвращать ошибку")

	select {
	case ev := <-received:
		assert.Equal(t, EventResyncForced, ev.EventType, "подписчик должен получить событие")
		assert.Equal(t, "client-1", ev.ClientID, "данные события должны доставляться без искажений")
	case <-time.After(2 * time.Second):
		t.Fatal("событие не доставлено подписчику")
	}
}

func TestMemoryBus_FilterByType(t *testing.T) {
	// Тест фильтрации: подписчик получает только указанные типы
	bus := NewMemoryBus(16)

	var mu gosync.Mutex
	var got []string
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventMatchEnding}},
		func(ctx context.Context, ev *Envelope) {
			mu.Lock()
			got = append(got, ev.EventType)
			mu.Unlock()
		})
	require.NoError(t, err, "подписка должна создаваться")
	defer sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope(EventClientConnected, "a")))
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope(EventMatchEnding, "")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == EventMatchEnding
	}, 2*time.Second, 10*time.Millisecond, "должно дойти только отфильтрованное событие")
}

func TestMemoryBus_Metrics(t *testing.T) {
	// Тест накопления метрик шины
	bus := NewMemoryBus(16)

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope(EventClientConnected, "a")))
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope(EventClientConnected, "b")))

	assert.Eventually(t, func() bool {
		return bus.Metrics().Published == 2
	}, 2*time.Second, 10*time.Millisecond, "опубликованные события должны учитываться")
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	// Тест back-pressure: при заполненном буфере события низкого
	// приоритета отбрасываются, а не блокируют публикацию
	// Шина без диспетчера: буфер из одного слота заполняется и не разгребается
	bus := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, 1),
		capacity:    1,
	}

	first := NewEnvelope(EventClientConnected, "a")
	require.NoError(t, bus.Publish(context.Background(), first))

	low := NewEnvelope(EventClientConnected, "b")
	low.Priority = 1
	for i := 0; i < 50; i++ {
		require.NoError(t, bus.Publish(context.Background(), low), "низкий приоритет не должен блокировать")
	}

	stats := bus.Metrics()
	assert.Equal(t, uint64(1), stats.Published, "в заполненный буфер проходит только первое событие")
	assert.Equal(t, uint64(50), stats.Dropped, "все низкоприоритетные события должны быть отброшены")
}

func TestGlobalPublish_NilSafe(t *testing.T) {
	// Тест глобальной публикации без инициализированной шины
	Init(nil)
	err := Publish(context.Background(), NewEnvelope(EventClientConnected, "x"))
	assert.NoError(t, err, "публикация без шины должна молча игнорироваться")
}
