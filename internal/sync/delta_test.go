package sync

import (
	"testing"

	"github.com/annel0/arena-game/internal/protocol"
	"github.com/annel0/arena-game/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeCollection строит коллекцию с одним персонажем и одним препятствием
func makeCollection() *snapshot.Collection {
	return &snapshot.Collection{
		ByCategory: map[snapshot.Category][]*snapshot.EntitySnapshot{
			snapshot.CategoryCharacters: {
				{
					NetworkID:     1001,
					TypeNamespace: "arena",
					TypeName:      "character",
					Attributes:    snapshot.Attributes{"x": 10.0, "y": 5.0, "hp": 100},
				},
			},
			snapshot.CategoryProjectiles: {},
			snapshot.CategoryPickups:     {},
			snapshot.CategoryObstacles: {
				{
					NetworkID:     1002,
					TypeNamespace: "arena",
					TypeName:      "obstacle",
					Attributes:    snapshot.Attributes{"x": 0.0, "y": 0.0, "width": 2.0},
				},
			},
		},
	}
}

// readyClient возвращает клиента с зафиксированным полным состоянием
func readyClient(col *snapshot.Collection, reg *protocol.ClassRegistry) *ClientState {
	cs := NewClientState("client-1", Capabilities{SupportsDelta: true})
	cs.AckSync()
	cs.CommitFull(col, reg, 1)
	return cs
}

func TestComputeDelta_FreshClientForcesFull(t *testing.T) {
	// Тест первой отправки: клиент без кеша всегда получает полное состояние
	engine := NewEngine(10)
	cs := NewClientState("client-1", Capabilities{SupportsDelta: true})

	result := engine.ComputeDelta(cs, makeCollection(), 1)

	assert.True(t, result.ForceFull, "клиент без кеша должен получить полный ресинк")
	assert.Nil(t, result.Payload, "payload при ForceFull не строится")
}

func TestComputeDelta_NoChanges(t *testing.T) {
	// Тест пустой дельты: без изменений ни одна сущность не попадает в payload
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	result := engine.ComputeDelta(cs, col, 10)

	require.False(t, result.ForceFull, "дельта должна вычисляться")
	characters := result.Payload["characters"].([]interface{})
	assert.Empty(t, characters, "неизменившиеся сущности в дельту не входят")
	assert.Empty(t, result.RemovedIDs, "удалённых сущностей нет")
}

func TestComputeDelta_ChangedFieldsOnly(t *testing.T) {
	// Тест пополевой дельты: передаются только изменившиеся поля
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	next := makeCollection()
	next.ByCategory[snapshot.CategoryCharacters][0].Attributes["hp"] = 80

	result := engine.ComputeDelta(cs, next, 10)

	require.False(t, result.ForceFull, "дельта должна вычисляться")
	characters := result.Payload["characters"].([]interface{})
	require.Len(t, characters, 1, "изменившийся персонаж должен войти в дельту")

	record := characters[0].(map[string]interface{})
	assert.Equal(t, uint64(1001), record["network_id"], "запись должна содержать network_id")
	assert.Equal(t, 80, record["hp"], "изменившееся поле должно войти в запись")
	assert.NotContains(t, record, "x", "неизменившиеся поля в запись не входят")
	assert.NotContains(t, record, "y", "неизменившиеся поля в запись не входят")
	assert.NotContains(t, record, "class_id", "существующая сущность передаётся без class_id")
}

func TestComputeDelta_NewEntityUsesClassID(t *testing.T) {
	// Тест новой сущности: полный снапшот с class_id вместо пары строк типа
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	next := makeCollection()
	next.ByCategory[snapshot.CategoryCharacters] = append(
		next.ByCategory[snapshot.CategoryCharacters],
		&snapshot.EntitySnapshot{
			NetworkID:     1005,
			TypeNamespace: "arena",
			TypeName:      "character",
			Attributes:    snapshot.Attributes{"x": 1.0, "y": 2.0, "hp": 50},
		},
	)

	result := engine.ComputeDelta(cs, next, 10)

	require.False(t, result.ForceFull, "известный тип не должен форсировать полный ресинк")
	characters := result.Payload["characters"].([]interface{})
	require.Len(t, characters, 1, "новая сущность должна войти в дельту")

	record := characters[0].(map[string]interface{})
	assert.Equal(t, uint64(1005), record["network_id"], "запись должна содержать network_id")
	assert.Equal(t, reg.Reverse[protocol.ClassKey{Namespace: "arena", Name: "character"}], record["class_id"],
		"новая сущность помечается class_id")
	assert.Equal(t, 50, record["hp"], "новая сущность передаётся полным снапшотом")
	assert.NotContains(t, record, "type_name", "пара строк типа в дельте не передаётся")
}

func TestComputeDelta_UnknownClassForcesFull(t *testing.T) {
	// Тест рассинхронизации таблицы классов: появление типа, неизвестного
	// клиенту, молча переводит его на полный ресинк
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	next := makeCollection()
	next.ByCategory[snapshot.CategoryProjectiles] = []*snapshot.EntitySnapshot{
		{
			NetworkID:     1006,
			TypeNamespace: "arena",
			TypeName:      "projectile", // Типа не было при последней полной отправке
			Attributes:    snapshot.Attributes{"x": 3.0},
		},
	}

	result := engine.ComputeDelta(cs, next, 10)

	assert.True(t, result.ForceFull, "неизвестный тип должен форсировать полный ресинк")
}

func TestComputeDelta_RemovedEntities(t *testing.T) {
	// Тест удаления: исчезнувшие сущности попадают в единый список
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	next := makeCollection()
	next.ByCategory[snapshot.CategoryCharacters] = nil

	result := engine.ComputeDelta(cs, next, 10)

	require.False(t, result.ForceFull, "дельта должна вычисляться")
	assert.Equal(t, []uint64{1001}, result.RemovedIDs, "исчезнувший персонаж должен попасть в removed")

	removed := result.Payload["removed_entities"].([]interface{})
	assert.Equal(t, []interface{}{uint64(1001)}, removed, "payload должен содержать removed_entities")
}

func TestComputeDelta_StaticCategoriesSkipped(t *testing.T) {
	// Тест статических категорий: вне планового тика категория передаётся
	// сигнальным nil и не пересчитывается
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	// Тик 13 — не кратен 10, статические категории пропускаются
	result := engine.ComputeDelta(cs, col, 13)

	require.False(t, result.ForceFull, "дельта должна вычисляться")
	require.Contains(t, result.Payload, "obstacles", "ключ статической категории присутствует")
	assert.Nil(t, result.Payload["obstacles"], "вне планового тика категория — nil")
	assert.NotContains(t, result.Refreshed, snapshot.CategoryObstacles, "пропущенная категория не считается обновлённой")

	// Тик 20 — кратен 10, статические категории входят в дельту
	result = engine.ComputeDelta(cs, col, 20)
	require.False(t, result.ForceFull, "дельта должна вычисляться")
	assert.NotNil(t, result.Payload["obstacles"], "на плановом тике категория пересчитывается")
	assert.Contains(t, result.Refreshed, snapshot.CategoryObstacles, "категория должна считаться обновлённой")
}

func TestCommitDelta_RemovedPurgedFromCache(t *testing.T) {
	// Тест фиксации дельты: удалённые сущности выбрасываются из кеша
	// и не попадают в removed повторно
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	next := makeCollection()
	next.ByCategory[snapshot.CategoryCharacters] = nil

	result := engine.ComputeDelta(cs, next, 10)
	require.Equal(t, []uint64{1001}, result.RemovedIDs, "первая дельта должна содержать удаление")
	cs.CommitDelta(next, result.Refreshed, result.RemovedIDs)

	again := engine.ComputeDelta(cs, next, 20)
	require.False(t, again.ForceFull, "дельта должна вычисляться")
	assert.Empty(t, again.RemovedIDs, "удаление не должно передаваться повторно")
}

func TestClientState_Lifecycle(t *testing.T) {
	// Тест жизненного цикла клиента: фазы и решения о полной отправке
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := NewClientState("client-1", Capabilities{SupportsDelta: true})

	assert.Equal(t, PhaseAwaitingSyncAck, cs.Phase(), "новый клиент ждёт подтверждения загрузки")
	assert.False(t, cs.SyncAcked(), "подтверждение ещё не получено")
	assert.True(t, cs.NeedsFull(1, 100), "клиент без кеша требует полной отправки")

	cs.AckSync()
	assert.True(t, cs.SyncAcked(), "подтверждение должно учитываться")

	cs.CommitFull(col, reg, 1)
	assert.Equal(t, PhaseFullBaseline, cs.Phase(), "после полной отправки — базовая фаза")
	assert.False(t, cs.NeedsFull(2, 100), "сразу после полной отправки дельты разрешены")
	assert.True(t, cs.NeedsFull(101, 100), "по истечении интервала — снова полная отправка")

	cs.CommitDelta(col, nil, nil)
	assert.Equal(t, PhaseDeltaSteady, cs.Phase(), "после дельты — установившийся режим")

	cs.RequestFull()
	assert.Equal(t, PhaseForcedFull, cs.Phase(), "явный запрос переводит в фазу принудительного ресинка")
	assert.True(t, cs.NeedsFull(3, 100), "явный запрос требует полной отправки")

	cs.Disconnect()
	assert.True(t, cs.Disconnected(), "клиент должен считаться отключённым")
	assert.Equal(t, PhaseDisconnected, cs.Phase(), "терминальная фаза")
}

func TestApplyDelta_ReproducesServerState(t *testing.T) {
	// Тест инварианта синхронизации: full + последовательность дельт
	// восстанавливает то же состояние, что и свежий full
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cs := readyClient(col, reg)
	engine := NewEngine(10)

	// Клиентский кеш строится из того же полного состояния
	cache := NewClientCacheFromFull(BuildFull(col, reg))

	// Мир меняется: hp падает, появляется снаряд, препятствие исчезает
	next := makeCollection()
	next.ByCategory[snapshot.CategoryCharacters][0].Attributes["hp"] = 75
	next.ByCategory[snapshot.CategoryProjectiles] = []*snapshot.EntitySnapshot{
		{
			NetworkID:     1006,
			TypeNamespace: "arena",
			TypeName:      "obstacle", // Тип уже есть в таблице классов клиента
			Attributes:    snapshot.Attributes{"x": 3.0, "y": 4.0, "width": 1.0},
		},
	}
	next.ByCategory[snapshot.CategoryObstacles] = nil

	result := engine.ComputeDelta(cs, next, 10)
	require.False(t, result.ForceFull, "дельта должна вычисляться")

	cache.ApplyDelta(result.Payload)

	// Сравниваем восстановленное состояние с актуальным снапшотом
	for _, category := range snapshot.Categories {
		entries := cache[category]
		snaps := next.ByCategory[category]
		require.Len(t, entries, len(snaps), "размер категории %s должен совпадать", category)
		for _, snap := range snaps {
			assert.Equal(t, map[string]interface{}(snap.Attributes), map[string]interface{}(entries[snap.NetworkID]),
				"атрибуты сущности %d должны совпадать", snap.NetworkID)
		}
	}
}

func TestApplyDelta_NilCategoryUntouched(t *testing.T) {
	// Тест сигнального nil: кеш категории не трогается
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)
	cache := NewClientCacheFromFull(BuildFull(col, reg))

	before := len(cache[snapshot.CategoryObstacles])
	require.Equal(t, 1, before, "в кеше должно быть препятствие")

	cache.ApplyDelta(map[string]interface{}{
		"obstacles":        nil,
		"removed_entities": []interface{}{},
	})

	assert.Len(t, cache[snapshot.CategoryObstacles], before, "nil-категория не должна менять кеш")
}

func TestBuildFull_ContainsRegistryAndRecords(t *testing.T) {
	// Тест полного состояния: таблица классов и записи с class_id
	col := makeCollection()
	reg := protocol.BuildClassRegistry(col)

	payload := BuildFull(col, reg)

	require.Contains(t, payload, "class_registry", "полное состояние несёт таблицу классов")
	require.Contains(t, payload, "timestamp", "полное состояние несёт метку времени")
	assert.Equal(t, false, payload["game_over"], "матч не завершён")
	assert.NotContains(t, payload, "winner_id", "без завершения матча победитель не передаётся")

	characters := payload["characters"].([]interface{})
	require.Len(t, characters, 1, "персонаж должен войти в полное состояние")
	record := characters[0].(map[string]interface{})
	assert.Contains(t, record, "class_id", "запись полного состояния несёт class_id")
	assert.NotContains(t, record, "type_name", "пара строк типа заменена на class_id")
}

func TestBuildLegacy_TypeStringsInline(t *testing.T) {
	// Тест формата обратной совместимости: пара строк типа в каждой записи,
	// без таблицы классов
	col := makeCollection()

	payload := BuildLegacy(col)

	assert.NotContains(t, payload, "class_registry", "старый формат не несёт таблицу классов")

	characters := payload["characters"].([]interface{})
	require.Len(t, characters, 1, "персонаж должен войти в состояние")
	record := characters[0].(map[string]interface{})
	assert.Equal(t, "arena", record["type_namespace"], "запись несёт пространство имён типа")
	assert.Equal(t, "character", record["type_name"], "запись несёт имя типа")
	assert.NotContains(t, record, "class_id", "старый формат не использует class_id")
}

func TestBuildMatchEnding(t *testing.T) {
	// Тест уведомления о завершении матча
	col := makeCollection()
	col.GameOver = true
	col.WinnerID = 1001

	payload := BuildMatchEnding(col)

	assert.Equal(t, true, payload["game_over"], "уведомление несёт флаг завершения")
	assert.Equal(t, uint64(1001), payload["winner_id"], "уведомление несёт победителя")
}
