package protocol

import (
	"strconv"

	"github.com/annel0/arena-game/internal/snapshot"
)

// ClassKey идентифицирует конкретный тип сущности
type ClassKey struct {
	Namespace string // Пространство имён типа
	Name      string // Имя типа
}

// ClassRegistry отображает маленькие целочисленные идентификаторы на типы
// сущностей. Строится заново для каждого полного состояния; дельты ссылаются
// на типы по class_id вместо пары строк.
type ClassRegistry struct {
	Forward map[int32]ClassKey // id -> тип
	Reverse map[ClassKey]int32 // тип -> id
}

// BuildClassRegistry присваивает последовательные id начиная с 1 в порядке
// первого появления типа. Порядок обхода фиксирован (snapshot.Categories и
// порядок сущностей внутри категории), поэтому для одного и того же
// состояния мира id воспроизводимы.
func BuildClassRegistry(col *snapshot.Collection) *ClassRegistry {
	reg := &ClassRegistry{
		Forward: make(map[int32]ClassKey),
		Reverse: make(map[ClassKey]int32),
	}

	next := int32(1)
	for _, category := range snapshot.Categories {
		for _, snap := range col.ByCategory[category] {
			key := ClassKey{Namespace: snap.TypeNamespace, Name: snap.TypeName}
			if _, exists := reg.Reverse[key]; exists {
				continue
			}
			reg.Forward[next] = key
			reg.Reverse[key] = next
			next++
		}
	}

	return reg
}

// IDFor возвращает class_id для типа снапшота (0 — тип неизвестен)
func (r *ClassRegistry) IDFor(snap *snapshot.EntitySnapshot) int32 {
	return r.Reverse[ClassKey{Namespace: snap.TypeNamespace, Name: snap.TypeName}]
}

// ForwardTable сериализует прямую таблицу в payload-представление:
// id -> [namespace, name]
func (r *ClassRegistry) ForwardTable() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Forward))
	for id, key := range r.Forward {
		out[int32Key(id)] = []interface{}{key.Namespace, key.Name}
	}
	return out
}

func int32Key(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}
