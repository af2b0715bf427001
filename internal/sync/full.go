package sync

import (
	"time"

	"github.com/annel0/arena-game/internal/protocol"
	"github.com/annel0/arena-game/internal/snapshot"
)

// BuildFull строит полное, независимое от кеша состояние для отправки
// клиенту. Таблица классов входит в сообщение; клиент сохраняет её
// обратную форму для декодирования последующих дельт.
func BuildFull(col *snapshot.Collection, reg *protocol.ClassRegistry) map[string]interface{} {
	payload := map[string]interface{}{
		"timestamp":      time.Now().UnixMilli(),
		"game_over":      col.GameOver,
		"class_registry": reg.ForwardTable(),
	}
	if col.GameOver {
		payload["winner_id"] = col.WinnerID
	}

	for _, category := range snapshot.Categories {
		records := make([]interface{}, 0, len(col.ByCategory[category]))
		for _, snap := range col.ByCategory[category] {
			records = append(records, newEntityRecord(snap, reg.IDFor(snap)))
		}
		payload[string(category)] = records
	}

	return payload
}

// BuildLegacy строит полное состояние для клиентов без поддержки дельт:
// без таблицы классов, пара типа передаётся строками в каждой записи.
// Чистый путь обратной совместимости, кеш для таких клиентов не ведётся.
func BuildLegacy(col *snapshot.Collection) map[string]interface{} {
	payload := map[string]interface{}{
		"timestamp": time.Now().UnixMilli(),
		"game_over": col.GameOver,
	}
	if col.GameOver {
		payload["winner_id"] = col.WinnerID
	}

	for _, category := range snapshot.Categories {
		records := make([]interface{}, 0, len(col.ByCategory[category]))
		for _, snap := range col.ByCategory[category] {
			record := make(map[string]interface{}, len(snap.Attributes)+3)
			for key, value := range snap.Attributes {
				record[key] = value
			}
			record["network_id"] = snap.NetworkID
			record["type_namespace"] = snap.TypeNamespace
			record["type_name"] = snap.TypeName
			records = append(records, record)
		}
		payload[string(category)] = records
	}

	return payload
}

// BuildMatchEnding строит одноразовое уведомление о завершении матча
func BuildMatchEnding(col *snapshot.Collection) map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().UnixMilli(),
		"game_over": true,
		"winner_id": col.WinnerID,
	}
}
