package ws

/*
Постоянное соединение водителя.

Токен проверяется один раз при рукопожатии; идентификатор транспорта
привязывается к сессии и дальше из сообщений не извлекается. Отказ
проверки токена завершает попытку соединения до её открытия, без
события отключения. Некорректное отдельное сообщение логируется и
пропускается, не закрывая соединение.
*/

import (
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/daniil11ru/bustrack/cli/tracker/domain"
	"github.com/daniil11ru/bustrack/cli/tracker/types"
)

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

// DriverSession — состояние одного постоянного соединения водителя.
// Закрытая сессия не используется повторно.
type DriverSession struct {
	BusID string

	conn  *websocket.Conn
	state int32
}

func (s *DriverSession) State() SessionState {
	return SessionState(atomic.LoadInt32(&s.state))
}

func (s *DriverSession) advance(from, to SessionState) bool {
	return atomic.CompareAndSwapInt32(&s.state, int32(from), int32(to))
}

// closeSession переводит сессию в терминальное состояние. Возвращает
// true ровно один раз на сессию.
func (s *DriverSession) closeSession() bool {
	return s.advance(StateActive, StateClosed) || s.advance(StateAuthenticated, StateClosed)
}

type Verifier interface {
	Verify(token string) (string, error)
}

type OfflineBroadcaster interface {
	PublishDriverOffline(busID string)
}

type DriverGateway struct {
	Tokens Verifier
	Report *domain.ReportPosition
	Router OfflineBroadcaster

	// ConnTTL ограничивает ожидание очередного сообщения; ноль
	// отключает ограничение.
	ConnTTL time.Duration
}

type positionMessage struct {
	Event     string   `json:"event"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Timestamp int64    `json:"ts"`
}

func (g *DriverGateway) Handle(w http.ResponseWriter, r *http.Request) {
	session := &DriverSession{}

	busID, err := g.Tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		log.WithField("ip", r.RemoteAddr).Warn("Отклонено соединение водителя: неверный токен")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("err", err).Error("Не удалось открыть соединение водителя")
		return
	}

	session.BusID = busID
	session.conn = conn
	session.advance(StateConnecting, StateAuthenticated)
	log.WithFields(log.Fields{"ip": r.RemoteAddr, "bus_id": busID}).Info("Водитель подключен")

	g.run(session)
}

func (g *DriverGateway) run(session *DriverSession) {
	defer func() {
		_ = session.conn.Close()
		if session.closeSession() {
			g.Router.PublishDriverOffline(session.BusID)
			log.WithField("bus_id", session.BusID).Info("Водитель отключен")
		}
	}()

	session.advance(StateAuthenticated, StateActive)

	for {
		if g.ConnTTL > 0 {
			_ = session.conn.SetReadDeadline(time.Now().Add(g.ConnTTL))
		} else {
			_ = session.conn.SetReadDeadline(time.Time{})
		}

		var msg positionMessage
		if err := session.conn.ReadJSON(&msg); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.WithField("bus_id", session.BusID).Warn("Таймаут чтения")
			} else if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.WithField("bus_id", session.BusID).Info("Клиент закрыл соединение")
			} else {
				log.WithFields(log.Fields{"bus_id": session.BusID, "err": err}).Error("Ошибка при получении")
			}
			return
		}

		if msg.Event != types.EventPosition {
			log.WithFields(log.Fields{"bus_id": session.BusID, "event": msg.Event}).Debug("Пропущено сообщение неизвестного типа")
			continue
		}
		if msg.Latitude == nil || msg.Longitude == nil {
			log.WithField("bus_id", session.BusID).Warn("Пропущено сообщение без координат")
			continue
		}

		_, err := g.Report.Run(domain.Report{
			BusID:     session.BusID,
			Latitude:  *msg.Latitude,
			Longitude: *msg.Longitude,
			Timestamp: msg.Timestamp,
		})
		if err != nil {
			log.WithField("bus_id", session.BusID).Warnf("Отчет отклонен: %v", err)
		}
	}
}
