package sync

import (
	"github.com/annel0/arena-game/internal/snapshot"
)

// ClientCache — клиентская сторона кеша сущностей. Используется
// Go-клиентами и тестами для воспроизведения состояния из дельт.
type ClientCache map[snapshot.Category]map[uint64]snapshot.Attributes

// NewClientCacheFromFull строит кеш из полного сообщения
func NewClientCacheFromFull(payload map[string]interface{}) ClientCache {
	cache := make(ClientCache)
	for _, category := range snapshot.Categories {
		entries := make(map[uint64]snapshot.Attributes)
		if records, ok := payload[string(category)].([]interface{}); ok {
			for _, rec := range records {
				record, ok := rec.(map[string]interface{})
				if !ok {
					continue
				}
				id, ok := recordID(record)
				if !ok {
					continue
				}
				entries[id] = recordAttributes(record)
			}
		}
		cache[category] = entries
	}
	return cache
}

// ApplyDelta применяет дельту к кешу: слияние изменённых полей,
// вставка новых сущностей, удаление исчезнувших. nil вместо списка
// категории означает «без изменений» — кеш категории не трогается.
func (c ClientCache) ApplyDelta(payload map[string]interface{}) {
	for _, category := range snapshot.Categories {
		raw, present := payload[string(category)]
		if !present || raw == nil {
			continue // Статическая категория без обновления на этом тике
		}

		records, ok := raw.([]interface{})
		if !ok {
			continue
		}

		entries := c[category]
		if entries == nil {
			entries = make(map[uint64]snapshot.Attributes)
			c[category] = entries
		}

		for _, rec := range records {
			record, ok := rec.(map[string]interface{})
			if !ok {
				continue
			}
			id, ok := recordID(record)
			if !ok {
				continue
			}

			if _, isNew := record["class_id"]; isNew {
				// Полный снапшот новой сущности
				entries[id] = recordAttributes(record)
				continue
			}

			// Частичное обновление: сливаем изменённые поля
			attrs := entries[id]
			if attrs == nil {
				attrs = make(snapshot.Attributes)
				entries[id] = attrs
			}
			for key, value := range record {
				if key == "network_id" {
					continue
				}
				attrs[key] = value
			}
		}
	}

	// Удалённые сущности выбрасываются из всех категорий
	if removed, ok := payload["removed_entities"].([]interface{}); ok {
		for _, raw := range removed {
			if id, ok := toUint64(raw); ok {
				for _, entries := range c {
					delete(entries, id)
				}
			}
		}
	}
}

// recordAttributes возвращает атрибуты записи без служебных полей
func recordAttributes(record map[string]interface{}) snapshot.Attributes {
	attrs := make(snapshot.Attributes, len(record))
	for key, value := range record {
		switch key {
		case "network_id", "class_id", "type_namespace", "type_name":
			continue
		}
		attrs[key] = value
	}
	return attrs
}

func recordID(record map[string]interface{}) (uint64, bool) {
	return toUint64(record["network_id"])
}

// toUint64 приводит идентификатор к uint64; после JSON-декодирования
// числа приходят как float64
func toUint64(v interface{}) (uint64, bool) {
	switch id := v.(type) {
	case uint64:
		return id, true
	case int:
		return uint64(id), true
	case int64:
		return uint64(id), true
	case float64:
		return uint64(id), true
	default:
		return 0, false
	}
}
