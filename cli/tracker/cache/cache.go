package cache

import (
	"sync"

	"github.com/daniil11ru/bustrack/cli/tracker/types"
)

// PositionCache хранит последнюю известную позицию каждого транспорта.
// Запись перезаписывается безусловно в порядке поступления; записи не
// удаляются и живут до завершения процесса.
type PositionCache struct {
	mu        sync.RWMutex
	positions map[string]types.Position
}

func New() *PositionCache {
	return &PositionCache{positions: make(map[string]types.Position)}
}

// Put безусловно заменяет запись для busID.
func (c *PositionCache) Put(busID string, p types.Position) {
	c.mu.Lock()
	c.positions[busID] = p
	c.mu.Unlock()
}

// Get возвращает копию текущей записи и признак её наличия.
func (c *PositionCache) Get(busID string) (types.Position, bool) {
	c.mu.RLock()
	p, ok := c.positions[busID]
	c.mu.RUnlock()
	return p, ok
}
