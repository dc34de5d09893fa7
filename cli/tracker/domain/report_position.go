package domain

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/daniil11ru/bustrack/cli/tracker/storage"
	"github.com/daniil11ru/bustrack/cli/tracker/types"
)

var ErrInvalidPosition = errors.New("invalid position report")

// Report — входящий отчет о позиции. Значения вне диапазона
// отклоняются, а не обрезаются.
type Report struct {
	BusID     string  `validate:"required"`
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
	Timestamp int64
}

type PositionCache interface {
	Put(busID string, p types.Position)
}

type Router interface {
	Publish(busID string, u types.LocationUpdate)
}

// ReportPosition — единый путь приема отчета о позиции. Оба входа
// (REST и постоянное соединение) обязаны проходить именно через него:
// расхождение проверок между входами считается дефектом.
type ReportPosition struct {
	Cache   PositionCache
	Router  Router
	Storage storage.Saver

	validate *validator.Validate
}

func NewReportPosition(cache PositionCache, router Router, store storage.Saver) *ReportPosition {
	return &ReportPosition{
		Cache:    cache,
		Router:   router,
		Storage:  store,
		validate: validator.New(),
	}
}

// Run проверяет отчет, обновляет кэш и рассылает событие подписчикам.
// Отсутствующая метка времени заменяется временем приема. Ошибка
// внешнего хранилища логируется и не влияет на результат.
func (domain *ReportPosition) Run(r Report) (types.Position, error) {
	if err := domain.validate.Struct(r); err != nil {
		return types.Position{}, ErrInvalidPosition
	}

	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}

	p := types.Position{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timestamp: r.Timestamp,
	}

	domain.Cache.Put(r.BusID, p)

	update := types.NewLocationUpdate(r.BusID, p)
	domain.Router.Publish(r.BusID, update)

	if domain.Storage != nil {
		if err := domain.Storage.Save(update); err != nil {
			log.WithField("bus_id", r.BusID).Warnf("Не удалось сохранить событие во внешнее хранилище: %v", err)
		}
	}

	return p, nil
}
