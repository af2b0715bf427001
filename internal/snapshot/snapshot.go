package snapshot

// Category определяет категорию сущностей, сериализуемых вместе
type Category string

const (
	CategoryCharacters  Category = "characters"  // Персонажи (игроки и боты)
	CategoryProjectiles Category = "projectiles" // Снаряды
	CategoryPickups     Category = "pickups"     // Подбираемые предметы
	CategoryObstacles   Category = "obstacles"   // Статические препятствия
)

// Categories задаёт фиксированный порядок обхода категорий.
// Порядок важен: от него зависит детерминированность присвоения class_id.
var Categories = []Category{
	CategoryCharacters,
	CategoryProjectiles,
	CategoryPickups,
	CategoryObstacles,
}

// staticCategories — категории, обновляемые только раз в N тиков
var staticCategories = map[Category]bool{
	CategoryPickups:   true,
	CategoryObstacles: true,
}

// IsStatic возвращает true для редко меняющихся категорий
func (c Category) IsStatic() bool {
	return staticCategories[c]
}

// Attributes представляет санитизированные атрибуты одной сущности
type Attributes map[string]interface{}

// Clone возвращает глубокую копию атрибутов
func (a Attributes) Clone() Attributes {
	return cloneValue(a).(Attributes)
}

// EntitySnapshot представляет срез состояния одной сущности.
// Все значения атрибутов сериализуемы (см. Sanitize).
type EntitySnapshot struct {
	NetworkID     uint64     // Уникальный сетевой идентификатор
	TypeNamespace string     // Пространство имён типа
	TypeName      string     // Имя типа
	Attributes    Attributes // Санитизированные атрибуты
}

// Networked реализуется сущностями мира, видимыми по сети
type Networked interface {
	NetworkID() uint64
	TypeNamespace() string
	TypeName() string
	NetworkAttributes() map[string]interface{}
}

// Provider отдаёт авторитативное состояние мира для сбора снапшотов
type Provider interface {
	CollectEntities() map[Category][]Networked
	MatchState() (gameOver bool, winnerID uint64)
}

// Collection содержит снапшоты всех сущностей за один тик
type Collection struct {
	ByCategory map[Category][]*EntitySnapshot // Снапшоты по категориям
	GameOver   bool                           // Матч завершён
	WinnerID   uint64                         // Победитель (если GameOver)
}

// cloneValue рекурсивно копирует санитизированное значение
func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Attributes:
		out := make(Attributes, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}
