package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MessageKind определяет вид исходящего сообщения состояния
type MessageKind string

const (
	KindFull        MessageKind = "full"         // Полное состояние
	KindDelta       MessageKind = "delta"        // Дельта относительно кеша клиента
	KindLegacy      MessageKind = "legacy"       // Полное состояние для клиентов без поддержки дельт
	KindMatchEnding MessageKind = "match_ending" // Одноразовое уведомление о завершении матча
)

// MaxFrameSize ограничивает размер одного кадра на проводе
const MaxFrameSize = 10 * 1024 * 1024 // 10MB

// Envelope — фиксированная обёртка исходящего сообщения.
// Сама обёртка всегда кодируется в JSON и не сжимается; сжатие и выбор
// формата касаются только Payload.
type Envelope struct {
	Kind          MessageKind       `json:"kind"`          // Вид сообщения
	Compressed    bool              `json:"compressed"`    // Сжат ли Payload (zstd)
	Serialization SerializationType `json:"serialization"` // Формат Payload
	Payload       []byte            `json:"payload"`       // Байты полезной нагрузки
}

// Marshal сериализует обёртку
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации обёртки: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope разбирает обёртку из байтов кадра
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("ошибка десериализации обёртки: %w", err)
	}
	return env, nil
}

// Frame добавляет 4-байтовый big-endian префикс длины.
// Читатель потока отделяет сообщения по префиксу, без байта-разделителя.
func Frame(data []byte) []byte {
	framed := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(framed[:4], uint32(len(data)))
	copy(framed[4:], data)
	return framed
}

// ReadFrame читает один кадр из потока
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header)
	if size > MaxFrameSize {
		return nil, fmt.Errorf("слишком большое сообщение: %d байт", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
