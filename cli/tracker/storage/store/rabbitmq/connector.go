package rabbitmq

/*
Плагин для отправки событий в RabbitMQ.

Раздел настроек, которые должны отвечать в конфиге для подключения хранилища:

host = "localhost"
port = "5672"
user = "guest"
password = "guest"
exchange = "tracker"

Событие публикуется в exchange типа topic с ключом маршрутизации,
равным ключу события.
*/

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Message повторяет алиас события из пакета storage.
type Message = interface {
	Key() string
	ToBytes() ([]byte, error)
}

type Connector struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	config     map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.config = cfg
	if c.config["exchange"] == "" {
		return fmt.Errorf("не задан exchange для RabbitMQ")
	}

	connStr := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.config["user"], c.config["password"], c.config["host"], c.config["port"])

	var err error
	c.connection, err = amqp.Dial(connStr)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к RabbitMQ: %v", err)
	}

	c.channel, err = c.connection.Channel()
	if err != nil {
		return fmt.Errorf("не удалось открыть канал RabbitMQ: %v", err)
	}

	err = c.channel.ExchangeDeclare(
		c.config["exchange"],
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("не удалось объявить exchange: %v", err)
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

	err = c.channel.Publish(
		c.config["exchange"],
		msg.Key(),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        innerPkg,
		},
	)
	if err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.connection.Close()
}
