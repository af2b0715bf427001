package protocol

import (
	"testing"

	"github.com/annel0/arena-game/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryCollection() *snapshot.Collection {
	return &snapshot.Collection{
		ByCategory: map[snapshot.Category][]*snapshot.EntitySnapshot{
			snapshot.CategoryCharacters: {
				{NetworkID: 1001, TypeNamespace: "arena", TypeName: "character"},
				{NetworkID: 1002, TypeNamespace: "arena", TypeName: "character"},
			},
			snapshot.CategoryProjectiles: {
				{NetworkID: 1003, TypeNamespace: "arena", TypeName: "projectile"},
			},
			snapshot.CategoryObstacles: {
				{NetworkID: 1004, TypeNamespace: "arena", TypeName: "obstacle"},
			},
		},
	}
}

func TestBuildClassRegistry_SequentialIDs(t *testing.T) {
	// Тест присвоения последовательных id начиная с 1 в порядке появления
	reg := BuildClassRegistry(registryCollection())

	require.Len(t, reg.Forward, 3, "должно быть три уникальных типа")
	assert.Equal(t, ClassKey{"arena", "character"}, reg.Forward[1], "первый тип — персонаж")
	assert.Equal(t, ClassKey{"arena", "projectile"}, reg.Forward[2], "второй тип — снаряд")
	assert.Equal(t, ClassKey{"arena", "obstacle"}, reg.Forward[3], "третий тип — препятствие")
}

func TestBuildClassRegistry_Deterministic(t *testing.T) {
	// Тест воспроизводимости: одно состояние мира — одинаковые id
	first := BuildClassRegistry(registryCollection())
	second := BuildClassRegistry(registryCollection())

	assert.Equal(t, first.Forward, second.Forward, "таблицы должны совпадать между построениями")
	assert.Equal(t, first.Reverse, second.Reverse, "обратные таблицы должны совпадать")
}

func TestClassRegistry_IDFor(t *testing.T) {
	// Тест поиска id по снапшоту
	reg := BuildClassRegistry(registryCollection())

	known := &snapshot.EntitySnapshot{TypeNamespace: "arena", TypeName: "projectile"}
	assert.Equal(t, int32(2), reg.IDFor(known), "известный тип должен находиться")

	unknown := &snapshot.EntitySnapshot{TypeNamespace: "arena", TypeName: "portal"}
	assert.Equal(t, int32(0), reg.IDFor(unknown), "неизвестный тип должен давать 0")
}

func TestClassRegistry_ForwardTable(t *testing.T) {
	// Тест payload-представления прямой таблицы
	reg := BuildClassRegistry(registryCollection())
	table := reg.ForwardTable()

	require.Contains(t, table, "1", "ключи должны быть строковыми")
	assert.Equal(t, []interface{}{"arena", "character"}, table["1"], "значение — пара [namespace, name]")
}
