package world

import (
	"testing"

	"github.com/annel0/arena-game/internal/snapshot"
	"github.com/annel0/arena-game/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Creation(t *testing.T) {
	// Тест создания менеджера мира
	wm := NewManager()

	assert.NotNil(t, wm, "менеджер должен быть создан")
	assert.Equal(t, uint64(1000), wm.nextEntityID, "начальный ID сущности должен быть 1000")
	assert.Empty(t, wm.characters, "мир должен начинаться пустым")
}

func TestManager_UniqueIDsAcrossCategories(t *testing.T) {
	// Тест единого пространства id: сущности разных категорий не делят id
	wm := NewManager()

	char := wm.SpawnCharacter("hero", vec.Vec2Float{X: 0, Y: 0})
	proj := wm.SpawnProjectile(char.ID, vec.Vec2Float{X: 0, Y: 0}, vec.Vec2Float{X: 1, Y: 0}, 10)
	pickup := wm.SpawnPickup("health", vec.Vec2Float{X: 5, Y: 5})
	obstacle := wm.SpawnObstacle(vec.Vec2Float{X: 10, Y: 10}, 2, 2)

	ids := map[uint64]bool{
		char.ID:     true,
		proj.ID:     true,
		pickup.ID:   true,
		obstacle.ID: true,
	}
	assert.Len(t, ids, 4, "все id должны быть уникальны независимо от категории")
}

func TestManager_CollectEntitiesSpawnOrder(t *testing.T) {
	// Тест стабильного порядка обхода: сущности отдаются в порядке спавна
	wm := NewManager()

	first := wm.SpawnCharacter("first", vec.Vec2Float{})
	second := wm.SpawnCharacter("second", vec.Vec2Float{})
	third := wm.SpawnCharacter("third", vec.Vec2Float{})

	for i := 0; i < 5; i++ {
		entities := wm.CollectEntities()
		chars := entities[snapshot.CategoryCharacters]
		require.Len(t, chars, 3, "должны вернуться все персонажи")
		assert.Equal(t, first.ID, chars[0].NetworkID(), "порядок спавна должен сохраняться")
		assert.Equal(t, second.ID, chars[1].NetworkID(), "порядок спавна должен сохраняться")
		assert.Equal(t, third.ID, chars[2].NetworkID(), "порядок спавна должен сохраняться")
	}
}

func TestManager_Update(t *testing.T) {
	// Тест интеграции скорости: позиция меняется по velocity * dt
	wm := NewManager()

	char := wm.SpawnCharacter("runner", vec.Vec2Float{X: 0, Y: 0})
	char.Velocity = vec.Vec2Float{X: 10, Y: 0}

	wm.Update(0.5)

	assert.InDelta(t, 5.0, char.Position.X, 1e-9, "позиция должна сдвинуться на velocity*dt")
	assert.InDelta(t, 0.0, char.Position.Y, 1e-9, "позиция по Y не должна меняться")
}

func TestManager_ProjectileTTL(t *testing.T) {
	// Тест истечения времени жизни снаряда
	wm := NewManager()

	proj := wm.SpawnProjectile(1, vec.Vec2Float{}, vec.Vec2Float{X: 1, Y: 0}, 10)
	require.Equal(t, 3.0, proj.TTL, "начальное время жизни снаряда — 3 секунды")

	wm.Update(1.0)
	entities := wm.CollectEntities()
	assert.Len(t, entities[snapshot.CategoryProjectiles], 1, "живой снаряд должен оставаться в мире")

	wm.Update(2.5)
	entities = wm.CollectEntities()
	assert.Empty(t, entities[snapshot.CategoryProjectiles], "истёкший снаряд должен удаляться")
}

func TestManager_ObstacleBlocksMovement(t *testing.T) {
	// Тест столкновений: персонаж не проходит сквозь препятствие,
	// снаряд при попадании исчезает
	wm := NewManager()
	wm.SpawnObstacle(vec.Vec2Float{X: 5, Y: 0}, 2, 2)

	char := wm.SpawnCharacter("runner", vec.Vec2Float{X: 0, Y: 0})
	char.Velocity = vec.Vec2Float{X: 5, Y: 0}

	wm.Update(1.0)
	assert.Equal(t, 0.0, char.Position.X, "движение в препятствие должно блокироваться")

	proj := wm.SpawnProjectile(char.ID, vec.Vec2Float{X: 0, Y: 0}, vec.Vec2Float{X: 5, Y: 0}, 10)
	_ = proj

	wm.Update(1.0)
	entities := wm.CollectEntities()
	assert.Empty(t, entities[snapshot.CategoryProjectiles], "снаряд при попадании в препятствие исчезает")
}

func TestManager_Remove(t *testing.T) {
	// Тест удаления сущности из мира
	wm := NewManager()

	char := wm.SpawnCharacter("doomed", vec.Vec2Float{})
	wm.Remove(char.ID)

	entities := wm.CollectEntities()
	assert.Empty(t, entities[snapshot.CategoryCharacters], "удалённая сущность не должна отдаваться")
}

func TestManager_MatchLifecycle(t *testing.T) {
	// Тест завершения и рестарта матча
	wm := NewManager()

	gameOver, _ := wm.MatchState()
	assert.False(t, gameOver, "новый матч не завершён")

	winner := wm.SpawnCharacter("champion", vec.Vec2Float{})
	wm.EndMatch(winner.ID)

	gameOver, winnerID := wm.MatchState()
	assert.True(t, gameOver, "матч должен быть помечен завершённым")
	assert.Equal(t, winner.ID, winnerID, "победитель должен совпадать")

	wm.ResetMatch()
	gameOver, winnerID = wm.MatchState()
	assert.False(t, gameOver, "после рестарта матч не завершён")
	assert.Equal(t, uint64(0), winnerID, "победитель должен сбрасываться")
}

func TestManager_NetworkAttributes(t *testing.T) {
	// Тест сетевых атрибутов сущностей
	wm := NewManager()

	char := wm.SpawnCharacter("hero", vec.Vec2Float{X: 1.5, Y: 2.5})
	attrs := char.NetworkAttributes()

	assert.Equal(t, 1.5, attrs["x"], "x должен передаваться")
	assert.Equal(t, 2.5, attrs["y"], "y должен передаваться")
	assert.Equal(t, "hero", attrs["name"], "имя должно передаваться")
	assert.Equal(t, 100, attrs["hp"], "здоровье должно передаваться")

	obstacle := wm.SpawnObstacle(vec.Vec2Float{}, 4, 6)
	obstacleAttrs := obstacle.NetworkAttributes()
	assert.Equal(t, 4.0, obstacleAttrs["width"], "ширина должна передаваться")
	assert.Equal(t, 6.0, obstacleAttrs["height"], "высота должна передаваться")

	proj := wm.SpawnProjectile(char.ID, vec.Vec2Float{}, vec.Vec2Float{X: 3, Y: 0}, 25)
	projAttrs := proj.NetworkAttributes()
	assert.Equal(t, char.ID, projAttrs["owner_id"], "владелец снаряда должен передаваться")
	assert.Equal(t, 25, projAttrs["damage"], "урон должен передаваться")
	assert.NotContains(t, projAttrs, "ttl", "внутреннее время жизни не передаётся по сети")
}
