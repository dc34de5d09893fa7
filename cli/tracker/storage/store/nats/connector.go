package nats

/*
Плагин для отправки событий в NATS.

Раздел настроек, которые должны отвечать в конфиге для подключения хранилища:

host = "localhost"
port = "4222"
user = "user"
password = "pass"
topic = "bustrack.updates"

Событие публикуется в сабжект <topic>.<ключ события>.
*/

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Message повторяет алиас события из пакета storage.
type Message = interface {
	Key() string
	ToBytes() ([]byte, error)
}

type Connector struct {
	connection *nats.Conn
	config     map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.config = cfg
	if c.config["topic"] == "" {
		return fmt.Errorf("не задан topic для NATS")
	}

	connStr := fmt.Sprintf("nats://%s:%s", c.config["host"], c.config["port"])

	var opts []nats.Option
	if c.config["user"] != "" {
		opts = append(opts, nats.UserInfo(c.config["user"], c.config["password"]))
	}

	var err error
	c.connection, err = nats.Connect(connStr, opts...)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к NATS: %v", err)
	}

	return nil
}

func (c *Connector) Save(msg Message) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на событие")
	}

	innerPkg, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %v", err)
	}

	subject := fmt.Sprintf("%s.%s", c.config["topic"], msg.Key())
	if err := c.connection.Publish(subject, innerPkg); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	c.connection.Close()
	return nil
}
