package hub

/*
Маршрутизатор тем: на каждый транспорт — собственный набор подписчиков.

Все операции идут под одним мьютексом, поэтому порядок публикаций для
одного транспорта совпадает с порядком доставки каждому подписчику.
Push подписчика обязан не блокироваться: медленный или отключившийся
подписчик возвращает ошибку и молча выбывает из набора, не мешая
доставке остальным.
*/

import (
	"encoding/json"
	"sync"

	"github.com/daniil11ru/bustrack/cli/tracker/types"
	log "github.com/sirupsen/logrus"
)

// Subscriber — способность доставить сообщение одному подключенному
// читателю без блокировки.
type Subscriber interface {
	Push(payload []byte) error
}

// LastPositionSource отдает последнюю принятую позицию для повтора
// при подписке.
type LastPositionSource interface {
	Get(busID string) (types.Position, bool)
}

type Hub struct {
	mu        sync.Mutex
	positions LastPositionSource
	topics    map[string]map[Subscriber]struct{}
}

func New(positions LastPositionSource) *Hub {
	return &Hub{
		positions: positions,
		topics:    make(map[string]map[Subscriber]struct{}),
	}
}

// Subscribe добавляет подписчика в тему busID. Повторная подписка не
// имеет эффекта. Если в кэше уже есть позиция, она сразу же
// доставляется подписчику: иначе подписавшийся после последнего отчета
// ждал бы следующего неограниченно долго.
func (h *Hub) Subscribe(s Subscriber, busID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.topics[busID]
	if set == nil {
		set = make(map[Subscriber]struct{})
		h.topics[busID] = set
	}
	if _, ok := set[s]; ok {
		return
	}
	set[s] = struct{}{}

	p, ok := h.positions.Get(busID)
	if !ok {
		return
	}
	data, err := types.NewLocationUpdate(busID, p).ToBytes()
	if err != nil {
		log.WithField("err", err).Error("Не удалось сериализовать событие повтора")
		return
	}
	if err := s.Push(data); err != nil {
		delete(set, s)
	}
}

// Unsubscribe убирает подписчика из темы busID; отсутствие подписки не
// является ошибкой.
func (h *Hub) Unsubscribe(s Subscriber, busID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.topics[busID]; ok {
		delete(set, s)
	}
}

// Drop убирает подписчика из всех тем. Вызывается при разрыве его
// соединения.
func (h *Hub) Drop(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.topics {
		delete(set, s)
	}
}

// Publish доставляет событие обновления позиции всем текущим
// подписчикам темы busID.
func (h *Hub) Publish(busID string, u types.LocationUpdate) {
	data, err := u.ToBytes()
	if err != nil {
		log.WithField("err", err).Error("Не удалось сериализовать событие обновления")
		return
	}
	h.broadcast(busID, data)
}

// PublishDriverOffline извещает подписчиков, что транспорт перестал
// передавать позиции.
func (h *Hub) PublishDriverOffline(busID string) {
	data, err := json.Marshal(types.NewDriverOffline(busID))
	if err != nil {
		log.WithField("err", err).Error("Не удалось сериализовать событие отключения")
		return
	}
	h.broadcast(busID, data)
}

func (h *Hub) broadcast(busID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.topics[busID]
	for s := range set {
		if err := s.Push(data); err != nil {
			delete(set, s)
		}
	}
}
