package world

import (
	"sync"

	"github.com/annel0/arena-game/internal/physics"
	"github.com/annel0/arena-game/internal/snapshot"
	"github.com/annel0/arena-game/internal/vec"
	"github.com/annel0/arena-game/internal/world/entity"
)

// Коллайдеры подвижных сущностей
var (
	characterCollider  = physics.NewBoxCollider(1, 1)
	projectileCollider = physics.NewBoxCollider(0.3, 0.3)
)

// Manager — авторитативное состояние арены. Реализует snapshot.Provider:
// протокол синхронизации читает мир только через CollectEntities и
// MatchState.
type Manager struct {
	mu sync.RWMutex

	characters  map[uint64]*entity.Character
	projectiles map[uint64]*entity.Projectile
	pickups     map[uint64]*entity.Pickup
	obstacles   map[uint64]*entity.Obstacle

	// Порядок спавна для детерминированного обхода
	order map[uint64]int
	seq   int

	nextEntityID uint64
	gameOver     bool
	winnerID     uint64
}

// NewManager создаёт пустой мир
func NewManager() *Manager {
	return &Manager{
		characters:   make(map[uint64]*entity.Character),
		projectiles:  make(map[uint64]*entity.Projectile),
		pickups:      make(map[uint64]*entity.Pickup),
		obstacles:    make(map[uint64]*entity.Obstacle),
		order:        make(map[uint64]int),
		nextEntityID: 1000,
	}
}

// NextID выдаёт следующий сетевой идентификатор.
// Пространство id единое для всех категорий.
func (m *Manager) NextID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextEntityID
	m.nextEntityID++
	return id
}

// SpawnCharacter добавляет персонажа в мир
func (m *Manager) SpawnCharacter(name string, pos vec.Vec2Float) *entity.Character {
	id := m.NextID()

	m.mu.Lock()
	defer m.mu.Unlock()

	char := &entity.Character{
		Entity: entity.NewEntity(id, pos),
		Name:   name,
		HP:     100,
		MaxHP:  100,
	}
	m.characters[id] = char
	m.order[id] = m.seq
	m.seq++
	return char
}

// SpawnProjectile добавляет снаряд
func (m *Manager) SpawnProjectile(ownerID uint64, pos, velocity vec.Vec2Float, damage int) *entity.Projectile {
	id := m.NextID()

	m.mu.Lock()
	defer m.mu.Unlock()

	proj := &entity.Projectile{
		Entity:  entity.NewEntity(id, pos),
		OwnerID: ownerID,
		Damage:  damage,
		TTL:     3.0,
	}
	proj.Velocity = velocity
	m.projectiles[id] = proj
	m.order[id] = m.seq
	m.seq++
	return proj
}

// SpawnPickup добавляет подбираемый предмет
func (m *Manager) SpawnPickup(kind string, pos vec.Vec2Float) *entity.Pickup {
	id := m.NextID()

	m.mu.Lock()
	defer m.mu.Unlock()

	pickup := &entity.Pickup{
		Entity: entity.NewEntity(id, pos),
		Kind:   kind,
	}
	m.pickups[id] = pickup
	m.order[id] = m.seq
	m.seq++
	return pickup
}

// SpawnObstacle добавляет статическое препятствие
func (m *Manager) SpawnObstacle(pos vec.Vec2Float, width, height float64) *entity.Obstacle {
	id := m.NextID()

	m.mu.Lock()
	defer m.mu.Unlock()

	obstacle := &entity.Obstacle{
		Entity: entity.NewEntity(id, pos),
		Width:  width,
		Height: height,
	}
	m.obstacles[id] = obstacle
	m.order[id] = m.seq
	m.seq++
	return obstacle
}

// Remove удаляет сущность из мира по идентификатору
func (m *Manager) Remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.characters, id)
	delete(m.projectiles, id)
	delete(m.pickups, id)
	delete(m.obstacles, id)
	delete(m.order, id)
}

// Update продвигает симуляцию на dt секунд: перемещение по скорости,
// столкновения с препятствиями, истечение времени жизни снарядов.
// Игровые правила (урон, подбор предметов) остаются за внешними системами.
func (m *Manager) Update(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, char := range m.characters {
		next := char.Position.Add(char.Velocity.Mul(dt))
		if m.blockedByObstacle(next, characterCollider) {
			continue // Персонаж упирается в препятствие
		}
		char.Position = next
	}

	for id, proj := range m.projectiles {
		proj.Position = proj.Position.Add(proj.Velocity.Mul(dt))
		proj.TTL -= dt
		if proj.TTL <= 0 || m.blockedByObstacle(proj.Position, projectileCollider) {
			delete(m.projectiles, id)
			delete(m.order, id)
		}
	}
}

// blockedByObstacle проверяет пересечение коллайдера с любым препятствием
func (m *Manager) blockedByObstacle(pos vec.Vec2Float, collider *physics.BoxCollider) bool {
	for _, obstacle := range m.obstacles {
		blocker := physics.BoxCollider{Width: obstacle.Width, Height: obstacle.Height}
		if physics.CheckBoxCollision(pos, collider, obstacle.Position, &blocker) {
			return true
		}
	}
	return false
}

// EndMatch помечает матч завершённым с указанным победителем
func (m *Manager) EndMatch(winnerID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gameOver = true
	m.winnerID = winnerID
}

// ResetMatch сбрасывает флаг завершения матча (рестарт)
func (m *Manager) ResetMatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gameOver = false
	m.winnerID = 0
}

// MatchState возвращает состояние матча (snapshot.Provider)
func (m *Manager) MatchState() (bool, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gameOver, m.winnerID
}

// CollectEntities возвращает сущности по категориям в порядке спавна
// (snapshot.Provider). Порядок стабилен между тиками, что делает
// присвоение class_id воспроизводимым.
func (m *Manager) CollectEntities() map[snapshot.Category][]snapshot.Networked {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[snapshot.Category][]snapshot.Networked, len(snapshot.Categories))

	chars := make([]snapshot.Networked, 0, len(m.characters))
	for _, e := range m.characters {
		chars = append(chars, e)
	}
	out[snapshot.CategoryCharacters] = m.sortBySpawn(chars)

	projs := make([]snapshot.Networked, 0, len(m.projectiles))
	for _, e := range m.projectiles {
		projs = append(projs, e)
	}
	out[snapshot.CategoryProjectiles] = m.sortBySpawn(projs)

	pickups := make([]snapshot.Networked, 0, len(m.pickups))
	for _, e := range m.pickups {
		pickups = append(pickups, e)
	}
	out[snapshot.CategoryPickups] = m.sortBySpawn(pickups)

	obstacles := make([]snapshot.Networked, 0, len(m.obstacles))
	for _, e := range m.obstacles {
		obstacles = append(obstacles, e)
	}
	out[snapshot.CategoryObstacles] = m.sortBySpawn(obstacles)

	return out
}

// sortBySpawn упорядочивает сущности по порядку появления в мире
func (m *Manager) sortBySpawn(list []snapshot.Networked) []snapshot.Networked {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && m.order[list[j].NetworkID()] < m.order[list[j-1].NetworkID()]; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
	return list
}
