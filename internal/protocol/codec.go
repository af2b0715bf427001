package protocol

import (
	"fmt"
)

// Codec собирает исходящее сообщение: сериализация полезной нагрузки,
// опциональное сжатие, обёртка и кадрирование. Не имеет мутируемого
// состояния между вызовами — безопасен для параллельной отправки разным
// клиентам.
type Codec struct {
	compressor    *Compressor
	compressionOn bool // Глобальный переключатель из конфигурации
}

// NewCodec создаёт кодек сообщений
func NewCodec(enableCompression bool) (*Codec, error) {
	compressor, err := NewCompressor()
	if err != nil {
		return nil, err
	}
	return &Codec{compressor: compressor, compressionOn: enableCompression}, nil
}

// EncodeResult содержит готовый кадр и размеры для телеметрии
type EncodeResult struct {
	Frame       []byte // Кадр с префиксом длины, готовый к отправке
	RawSize     int    // Размер полезной нагрузки до сжатия
	EncodedSize int    // Размер полезной нагрузки после сжатия
	Compressed  bool   // Было ли применено сжатие
}

// Encode сериализует payload в выбранном формате, при необходимости
// сжимает и оборачивает в кадр. clientSupportsCompression учитывается
// только вместе с глобальным переключателем.
func (c *Codec) Encode(payload map[string]interface{}, kind MessageKind, st SerializationType, clientSupportsCompression bool) (*EncodeResult, error) {
	serializer, err := SerializerFor(st)
	if err != nil {
		return nil, err
	}

	raw, err := serializer.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования payload (%s): %w", kind, err)
	}

	body := raw
	compressed := false
	if clientSupportsCompression && c.compressionOn {
		body = c.compressor.Compress(raw)
		compressed = true
	}

	env := &Envelope{
		Kind:          kind,
		Compressed:    compressed,
		Serialization: st,
		Payload:       body,
	}

	envBytes, err := env.Marshal()
	if err != nil {
		return nil, err
	}

	return &EncodeResult{
		Frame:       Frame(envBytes),
		RawSize:     len(raw),
		EncodedSize: len(body),
		Compressed:  compressed,
	}, nil
}

// Decode разбирает кадр (без префикса длины) обратно в payload.
// Используется клиентской стороной и тестами.
func (c *Codec) Decode(frameBody []byte) (*Envelope, map[string]interface{}, error) {
	env, err := UnmarshalEnvelope(frameBody)
	if err != nil {
		return nil, nil, err
	}

	body := env.Payload
	if env.Compressed {
		body, err = c.compressor.Decompress(body)
		if err != nil {
			return nil, nil, err
		}
	}

	serializer, err := SerializerFor(env.Serialization)
	if err != nil {
		return nil, nil, err
	}

	payload, err := serializer.Unmarshal(body)
	if err != nil {
		return nil, nil, err
	}
	return env, payload, nil
}
