package types

import (
	"encoding/json"
	"time"
)

const (
	EventPosition           = "position"
	EventLocationUpdate     = "locationUpdate"
	EventDriverDisconnected = "driverDisconnected"
	EventSubscribe          = "subscribe"
	EventUnsubscribe        = "unsubscribe"
)

// Position — последняя известная точка транспорта.
type Position struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Timestamp int64   `json:"ts"` // unix-время в миллисекундах
}

// LocationUpdate — событие обновления позиции, рассылаемое подписчикам
// и отправляемое во внешние хранилища.
type LocationUpdate struct {
	Event     string  `json:"event"`
	BusID     string  `json:"busId"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Timestamp int64   `json:"ts"`
}

func NewLocationUpdate(busID string, p Position) LocationUpdate {
	return LocationUpdate{
		Event:     EventLocationUpdate,
		BusID:     busID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: p.Timestamp,
	}
}

// Key возвращает ключ маршрутизации события для внешних хранилищ.
func (u LocationUpdate) Key() string {
	return u.BusID
}

// ToBytes сериализует событие для отправки в хранилище.
func (u LocationUpdate) ToBytes() ([]byte, error) {
	return json.Marshal(u)
}

// DriverOffline — событие остановки трансляции позиций транспорта.
type DriverOffline struct {
	Event     string `json:"event"`
	BusID     string `json:"busId"`
	Timestamp int64  `json:"ts"`
}

func NewDriverOffline(busID string) DriverOffline {
	return DriverOffline{
		Event:     EventDriverDisconnected,
		BusID:     busID,
		Timestamp: time.Now().UnixMilli(),
	}
}
