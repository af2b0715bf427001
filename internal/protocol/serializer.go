package protocol

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// SerializationType идентифицирует формат сериализации полезной нагрузки
type SerializationType string

const (
	// SerializationJSON — формат по умолчанию, понятный любому клиенту
	SerializationJSON SerializationType = "json"
	// SerializationProto — компактный бинарный формат (protobuf Struct),
	// используется для клиентов, объявивших поддержку в рукопожатии
	SerializationProto SerializationType = "proto"
)

// PayloadSerializer сериализует динамические payload-структуры.
// Реализации не имеют состояния и безопасны для конкурентного вызова.
type PayloadSerializer interface {
	Type() SerializationType
	Marshal(payload map[string]interface{}) ([]byte, error)
	Unmarshal(data []byte) (map[string]interface{}, error)
}

// SerializerFor возвращает сериализатор для указанного формата
func SerializerFor(st SerializationType) (PayloadSerializer, error) {
	switch st {
	case SerializationJSON:
		return jsonSerializer{}, nil
	case SerializationProto:
		return protoSerializer{}, nil
	default:
		return nil, fmt.Errorf("неизвестный формат сериализации: %s", st)
	}
}

// SelectSerialization выбирает формат по возможностям клиента.
// Выбор выполняется на каждое сообщение, не фиксируется на соединении.
func SelectSerialization(supportsBinary bool) SerializationType {
	if supportsBinary {
		return SerializationProto
	}
	return SerializationJSON
}

//================ JSON =================//

type jsonSerializer struct{}

func (jsonSerializer) Type() SerializationType { return SerializationJSON }

func (jsonSerializer) Marshal(payload map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации в JSON: %w", err)
	}
	return data, nil
}

func (jsonSerializer) Unmarshal(data []byte) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("ошибка десериализации из JSON: %w", err)
	}
	return payload, nil
}

//================ Protobuf (google.protobuf.Struct) =================//

type protoSerializer struct{}

func (protoSerializer) Type() SerializationType { return SerializationProto }

func (protoSerializer) Marshal(payload map[string]interface{}) ([]byte, error) {
	st, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения protobuf Struct: %w", err)
	}

	data, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации protobuf: %w", err)
	}
	return data, nil
}

func (protoSerializer) Unmarshal(data []byte) (map[string]interface{}, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("ошибка десериализации protobuf: %w", err)
	}
	return st.AsMap(), nil
}
