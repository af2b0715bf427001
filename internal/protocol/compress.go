package protocol

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressor сжимает полезную нагрузку исходящих сообщений.
// Уровень SpeedFastest: кодек работает каждый тик для каждого клиента,
// пропускная способность важнее степени сжатия.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor создаёт zstd-компрессор
func NewCompressor() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd-энкодера: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd-декодера: %w", err)
	}

	return &Compressor{encoder: encoder, decoder: decoder}, nil
}

// Compress сжимает данные. EncodeAll безопасен для конкурентных вызовов.
func (c *Compressor) Compress(data []byte) []byte {
	return c.encoder.EncodeAll(data, nil)
}

// Decompress распаковывает данные
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки zstd: %w", err)
	}
	return out, nil
}
