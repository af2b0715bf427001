package snapshot

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// DefaultPrecision — количество знаков после запятой для float-значений.
// Округление снижает трафик и делает снапшоты воспроизводимыми.
const DefaultPrecision = 4

// Sanitize приводит атрибуты сущности к сериализуемому виду.
// Правила (применяются рекурсивно):
//   - float32/float64 округляются до precision знаков;
//   - map-ключи, не являющиеся строками, приводятся к строке;
//   - множества (map[T]struct{}) становятся отсортированными списками;
//   - функции и каналы становятся nil;
//   - []byte копируется;
//   - неизвестные типы деградируют до отладочной строки.
//
// Функция никогда не возвращает ошибку: неожиданный тип атрибута
// не должен ломать сбор снапшота целиком.
func Sanitize(attrs map[string]interface{}, precision int) Attributes {
	out := make(Attributes, len(attrs))
	for key, value := range attrs {
		out[key] = sanitizeValue(value, precision)
	}
	return out
}

func sanitizeValue(v interface{}, precision int) interface{} {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case float64:
		return roundFloat(val, precision)
	case float32:
		return roundFloat(float64(val), precision)
	case []byte:
		// Копируем, чтобы снапшот не зависел от дальнейших мутаций мира
		buf := make([]byte, len(val))
		copy(buf, val)
		return buf
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = sanitizeValue(item, precision)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item, precision)
		}
		return out
	}

	return sanitizeReflect(reflect.ValueOf(v), precision)
}

// sanitizeReflect обрабатывает типы, не покрытые прямыми type-switch ветками
func sanitizeReflect(rv reflect.Value, precision int) interface{} {
	switch rv.Kind() {
	case reflect.Func, reflect.Chan:
		// Исполняемые атрибуты в снапшот не попадают
		return nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return sanitizeValue(rv.Elem().Interface(), precision)
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = sanitizeValue(rv.Index(i).Interface(), precision)
		}
		return out
	case reflect.Map:
		// Множество (map[T]struct{}) превращаем в отсортированный список
		if rv.Type().Elem().Kind() == reflect.Struct && rv.Type().Elem().NumField() == 0 {
			out := make([]interface{}, 0, rv.Len())
			for _, key := range rv.MapKeys() {
				out = append(out, sanitizeValue(key.Interface(), precision))
			}
			sort.Slice(out, func(i, j int) bool {
				return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
			})
			return out
		}

		out := make(map[string]interface{}, rv.Len())
		for _, key := range rv.MapKeys() {
			// Непримитивные ключи приводим к строке
			out[fmt.Sprint(key.Interface())] = sanitizeValue(rv.MapIndex(key).Interface(), precision)
		}
		return out
	}

	// Неизвестный тип — отладочное строковое представление вместо ошибки
	return fmt.Sprintf("%v", rv.Interface())
}

func roundFloat(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	factor := math.Pow(10, float64(precision))
	return math.Round(v*factor) / factor
}
