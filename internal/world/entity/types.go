package entity

// Character представляет персонажа (игрока или бота)
type Character struct {
	Entity
	Name      string // Отображаемое имя
	HP        int    // Текущее здоровье
	MaxHP     int    // Максимальное здоровье
	Score     int    // Очки за матч
	Direction int    // Направление взгляда (0-7)
}

// TypeName возвращает имя типа
func (c *Character) TypeName() string { return "Character" }

// NetworkAttributes возвращает атрибуты персонажа для сетевой отправки
func (c *Character) NetworkAttributes() map[string]interface{} {
	attrs := c.baseAttributes()
	attrs["name"] = c.Name
	attrs["hp"] = c.HP
	attrs["max_hp"] = c.MaxHP
	attrs["score"] = c.Score
	attrs["direction"] = c.Direction
	return attrs
}

// Projectile представляет снаряд
type Projectile struct {
	Entity
	OwnerID uint64  // Кто выстрелил
	Damage  int     // Урон при попадании
	TTL     float64 // Оставшееся время жизни в секундах
}

// TypeName возвращает имя типа
func (p *Projectile) TypeName() string { return "Projectile" }

// NetworkAttributes возвращает атрибуты снаряда для сетевой отправки
func (p *Projectile) NetworkAttributes() map[string]interface{} {
	attrs := p.baseAttributes()
	attrs["owner_id"] = p.OwnerID
	attrs["damage"] = p.Damage
	return attrs
}

// Pickup представляет подбираемый предмет
type Pickup struct {
	Entity
	Kind string // Тип предмета (heal, ammo, ...)
}

// TypeName возвращает имя типа
func (p *Pickup) TypeName() string { return "Pickup" }

// NetworkAttributes возвращает атрибуты предмета для сетевой отправки
func (p *Pickup) NetworkAttributes() map[string]interface{} {
	attrs := p.baseAttributes()
	attrs["kind"] = p.Kind
	return attrs
}

// Obstacle представляет статическое препятствие
type Obstacle struct {
	Entity
	Width  float64 // Ширина
	Height float64 // Высота
}

// TypeName возвращает имя типа
func (o *Obstacle) TypeName() string { return "Obstacle" }

// NetworkAttributes возвращает атрибуты препятствия для сетевой отправки
func (o *Obstacle) NetworkAttributes() map[string]interface{} {
	attrs := o.baseAttributes()
	attrs["width"] = o.Width
	attrs["height"] = o.Height
	return attrs
}
