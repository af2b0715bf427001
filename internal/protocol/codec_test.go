package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": float64(1700000000000),
		"game_over": false,
		"characters": []interface{}{
			map[string]interface{}{
				"network_id": float64(1001),
				"x":          1.5,
				"hp":         float64(100),
				"name":       "hero",
			},
		},
	}
}

func TestCodec_EncodeDecodeRoundtrip(t *testing.T) {
	// Тест полного цикла: кодирование, кадрирование, декодирование
	codec, err := NewCodec(true)
	require.NoError(t, err, "кодек должен создаваться")

	result, err := codec.Encode(testPayload(), KindFull, SerializationJSON, true)
	require.NoError(t, err, "кодирование не должно возвращать ошибку")
	assert.True(t, result.Compressed, "payload должен быть сжат")
	assert.Greater(t, result.RawSize, 0, "размер до сжатия должен быть положительным")

	// Снимаем префикс длины и декодируем
	env, payload, err := codec.Decode(result.Frame[4:])
	require.NoError(t, err, "декодирование не должно возвращать ошибку")
	assert.Equal(t, KindFull, env.Kind, "вид сообщения должен сохраняться")
	assert.Equal(t, SerializationJSON, env.Serialization, "формат должен сохраняться")
	assert.Equal(t, testPayload(), payload, "payload должен пережить полный цикл")
}

func TestCodec_CompressionDisabledGlobally(t *testing.T) {
	// Тест глобального переключателя сжатия: даже если клиент поддерживает
	// сжатие, при выключенном переключателе payload идёт как есть
	codec, err := NewCodec(false)
	require.NoError(t, err, "кодек должен создаваться")

	result, err := codec.Encode(testPayload(), KindDelta, SerializationJSON, true)
	require.NoError(t, err, "кодирование не должно возвращать ошибку")

	assert.False(t, result.Compressed, "сжатие должно быть выключено")
	assert.Equal(t, result.RawSize, result.EncodedSize, "без сжатия размеры должны совпадать")
}

func TestCodec_ClientWithoutCompression(t *testing.T) {
	// Тест учёта возможностей клиента: сжатие применяется только для
	// клиентов, объявивших поддержку
	codec, err := NewCodec(true)
	require.NoError(t, err, "кодек должен создаваться")

	result, err := codec.Encode(testPayload(), KindDelta, SerializationJSON, false)
	require.NoError(t, err, "кодирование не должно возвращать ошибку")

	assert.False(t, result.Compressed, "клиент без поддержки сжатия получает несжатый payload")
}

func TestCodec_ProtoSerialization(t *testing.T) {
	// Тест бинарной сериализации через protobuf Struct
	codec, err := NewCodec(false)
	require.NoError(t, err, "кодек должен создаваться")

	result, err := codec.Encode(testPayload(), KindFull, SerializationProto, false)
	require.NoError(t, err, "бинарное кодирование не должно возвращать ошибку")

	env, payload, err := codec.Decode(result.Frame[4:])
	require.NoError(t, err, "декодирование не должно возвращать ошибку")
	assert.Equal(t, SerializationProto, env.Serialization, "формат должен сохраняться")
	assert.Equal(t, testPayload(), payload, "payload должен пережить бинарный цикл")
}

func TestSelectSerialization(t *testing.T) {
	// Тест выбора формата по возможностям клиента
	assert.Equal(t, SerializationProto, SelectSerialization(true), "бинарный клиент получает proto")
	assert.Equal(t, SerializationJSON, SelectSerialization(false), "обычный клиент получает JSON")
}

func TestFrame_Roundtrip(t *testing.T) {
	// Тест кадрирования: запись двух кадров подряд и чтение по префиксу
	first := []byte("первое сообщение")
	second := []byte("второе")

	var stream bytes.Buffer
	stream.Write(Frame(first))
	stream.Write(Frame(second))

	got, err := ReadFrame(&stream)
	require.NoError(t, err, "первый кадр должен читаться")
	assert.Equal(t, first, got, "тело первого кадра должно совпадать")

	got, err = ReadFrame(&stream)
	require.NoError(t, err, "второй кадр должен читаться")
	assert.Equal(t, second, got, "тело второго кадра должно совпадать")
}

func TestReadFrame_RejectsOversized(t *testing.T) {
	// Тест ограничения максимального размера кадра
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}

	_, err := ReadFrame(bytes.NewReader(header))
	assert.Error(t, err, "кадр больше лимита должен отклоняться")
}
