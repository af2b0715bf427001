package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/annel0/arena-game/internal/protocol"
	"github.com/annel0/arena-game/internal/snapshot"
	"github.com/annel0/arena-game/internal/sync"
)

// Тестовый клиент протокола синхронизации: подключается по TCP,
// проходит рукопожатие и воспроизводит состояние мира из full и delta
// сообщений. Запуск: go run test_client.go -addr localhost:7777

func main() {
	addr := flag.String("addr", "localhost:7777", "адрес сервера")
	compression := flag.Bool("compression", true, "заявить поддержку сжатия")
	duration := flag.Duration("duration", 10*time.Second, "длительность наблюдения")
	flag.Parse()

	fmt.Println("=== ТЕСТОВЫЙ КЛИЕНТ ПРОТОКОЛА СИНХРОНИЗАЦИИ ===")

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения: %v", err)
	}
	defer conn.Close()

	fmt.Println("✅ Подключен к серверу")

	// Рукопожатие: заявляем возможности
	caps := sync.Capabilities{
		SupportsDelta:       true,
		SupportsCompression: *compression,
	}
	sendControl(conn, map[string]interface{}{"type": "hello", "capabilities": caps})
	fmt.Printf("📤 hello отправлен (delta=%v, compression=%v)\n", caps.SupportsDelta, caps.SupportsCompression)

	// Подтверждаем загрузку ресурсов
	sendControl(conn, map[string]interface{}{"type": "sync_ack"})
	fmt.Println("📤 sync_ack отправлен")

	codec, err := protocol.NewCodec(true)
	if err != nil {
		log.Fatalf("❌ Ошибка создания кодека: %v", err)
	}

	var cache sync.ClientCache
	deadline := time.Now().Add(*duration)
	fullCount, deltaCount := 0, 0

	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)

		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			fmt.Printf("📡 Чтение завершено: %v\n", err)
			break
		}

		env, payload, err := codec.Decode(frame)
		if err != nil {
			log.Printf("❌ Ошибка декодирования: %v", err)
			continue
		}

		switch env.Kind {
		case protocol.KindFull:
			cache = sync.NewClientCacheFromFull(payload)
			fullCount++
			fmt.Printf("📥 full #%d: %d байт (compressed=%v, %s), сущностей: %d\n",
				fullCount, len(frame), env.Compressed, env.Serialization, cacheSize(cache))
		case protocol.KindDelta:
			if cache == nil {
				// Дельта до первого полного состояния — запрашиваем ресинк
				sendControl(conn, map[string]interface{}{"type": "full_request"})
				continue
			}
			cache.ApplyDelta(payload)
			deltaCount++
			fmt.Printf("📥 delta #%d: %d байт, сущностей в кеше: %d\n",
				deltaCount, len(frame), cacheSize(cache))
		case protocol.KindMatchEnding:
			fmt.Printf("🏁 Матч завершён, победитель: %v\n", payload["winner_id"])
		default:
			fmt.Printf("📥 %s: %d байт\n", env.Kind, len(frame))
		}
	}

	fmt.Printf("\n=== ИТОГО: full=%d, delta=%d ===\n", fullCount, deltaCount)
}

// sendControl отправляет управляющее сообщение в том же кадрировании,
// что и сообщения состояния
func sendControl(conn net.Conn, msg map[string]interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Fatalf("❌ Ошибка сериализации управляющего сообщения: %v", err)
	}
	if _, err := conn.Write(protocol.Frame(data)); err != nil {
		log.Fatalf("❌ Ошибка отправки: %v", err)
	}
}

func cacheSize(cache sync.ClientCache) int {
	total := 0
	for _, category := range snapshot.Categories {
		total += len(cache[category])
	}
	return total
}
