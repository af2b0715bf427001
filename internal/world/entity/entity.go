package entity

import (
	"github.com/annel0/arena-game/internal/vec"
)

// TypeNamespace — общее пространство имён типов сущностей арены
const TypeNamespace = "arena"

// Entity представляет базовую сущность арены
type Entity struct {
	ID       uint64        // Уникальный сетевой идентификатор (единое пространство id)
	Position vec.Vec2Float // Текущая позиция
	Velocity vec.Vec2Float // Текущая скорость
	Active   bool          // Активна ли сущность
}

// NewEntity создаёт базовую сущность
func NewEntity(id uint64, position vec.Vec2Float) Entity {
	return Entity{
		ID:       id,
		Position: position,
		Active:   true,
	}
}

// NetworkID возвращает сетевой идентификатор сущности
func (e *Entity) NetworkID() uint64 { return e.ID }

// TypeNamespace возвращает пространство имён типа
func (e *Entity) TypeNamespace() string { return TypeNamespace }

// baseAttributes — атрибуты, общие для всех сущностей
func (e *Entity) baseAttributes() map[string]interface{} {
	return map[string]interface{}{
		"x":  e.Position.X,
		"y":  e.Position.Y,
		"vx": e.Velocity.X,
		"vy": e.Velocity.Y,
	}
}
