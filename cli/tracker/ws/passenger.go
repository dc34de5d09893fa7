package ws

/*
Соединение пассажира.

Пассажир управляет подписками сообщениями subscribe/unsubscribe и
получает события через буферизованный канал: отправка из
маршрутизатора никогда не блокируется. Переполнение буфера медленного
читателя и разрыв соединения равнозначны — подписчик молча выбывает.
*/

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/daniil11ru/bustrack/cli/tracker/hub"
	"github.com/daniil11ru/bustrack/cli/tracker/types"
)

const defaultSendBuffer = 32

var errClientGone = errors.New("passenger client gone")

type Router interface {
	Subscribe(s hub.Subscriber, busID string)
	Unsubscribe(s hub.Subscriber, busID string)
	Drop(s hub.Subscriber)
}

type PassengerGateway struct {
	Router Router

	// SendBuffer — емкость исходящего буфера одного пассажира;
	// ноль означает значение по умолчанию.
	SendBuffer int
}

type controlMessage struct {
	Event string `json:"event"`
	BusID string `json:"busId"`
}

func (g *PassengerGateway) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("err", err).Error("Не удалось открыть соединение пассажира")
		return
	}

	buffer := g.SendBuffer
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}

	client := &PassengerClient{
		conn: conn,
		send: make(chan []byte, buffer),
		quit: make(chan struct{}),
	}

	log.WithField("ip", r.RemoteAddr).Info("Пассажир подключен")

	go client.writePump()
	g.readPump(client)
}

func (g *PassengerGateway) readPump(c *PassengerClient) {
	defer func() {
		g.Router.Drop(c)
		c.shutdown()
		_ = c.conn.Close()
	}()

	for {
		var msg controlMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Event {
		case types.EventSubscribe:
			if msg.BusID != "" {
				g.Router.Subscribe(c, msg.BusID)
			}
		case types.EventUnsubscribe:
			g.Router.Unsubscribe(c, msg.BusID)
		default:
			log.WithField("event", msg.Event).Debug("Пропущено сообщение неизвестного типа")
		}
	}
}

// PassengerClient — один подключенный читатель. Реализует hub.Subscriber.
type PassengerClient struct {
	conn *websocket.Conn
	send chan []byte
	quit chan struct{}
	once sync.Once
}

// Push ставит сообщение в очередь отправки, не блокируясь.
func (c *PassengerClient) Push(payload []byte) error {
	select {
	case <-c.quit:
		return errClientGone
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		// буфер переполнен: читатель слишком медленный
		return errClientGone
	}
}

func (c *PassengerClient) shutdown() {
	c.once.Do(func() { close(c.quit) })
}

func (c *PassengerClient) writePump() {
	defer func() {
		c.shutdown()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.quit:
			return
		}
	}
}
