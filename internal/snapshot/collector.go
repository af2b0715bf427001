package snapshot

// Collector собирает канонические снапшоты всех сущностей мира.
// Чистое чтение: мир в ходе сбора не мутируется.
type Collector struct {
	precision int
}

// NewCollector создаёт сборщик с указанной точностью округления float-значений
func NewCollector(precision int) *Collector {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return &Collector{precision: precision}
}

// Collect обходит категории в фиксированном порядке и санитизирует
// атрибуты каждой сущности. Выполняется один раз за тик; результат
// переиспользуется для всех клиентов только на чтение.
func (c *Collector) Collect(provider Provider) *Collection {
	entities := provider.CollectEntities()
	gameOver, winnerID := provider.MatchState()

	collection := &Collection{
		ByCategory: make(map[Category][]*EntitySnapshot, len(Categories)),
		GameOver:   gameOver,
		WinnerID:   winnerID,
	}

	for _, category := range Categories {
		list := entities[category]
		result := make([]*EntitySnapshot, 0, len(list))
		for _, ent := range list {
			result = append(result, &EntitySnapshot{
				NetworkID:     ent.NetworkID(),
				TypeNamespace: ent.TypeNamespace(),
				TypeName:      ent.TypeName(),
				Attributes:    Sanitize(ent.NetworkAttributes(), c.precision),
			})
		}
		collection.ByCategory[category] = result
	}

	return collection
}
