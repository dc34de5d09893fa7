package redis

/*
Плагин для зеркалирования последних позиций в Redis.

Раздел настроек, которые должны отвечать в конфиге для подключения хранилища:

host = "localhost"
port = "6379"
password = ""
db = "0"
prefix = "bus:"

Последняя позиция каждого транспорта пишется по ключу <prefix><ключ события>,
то есть Redis хранит зеркало кэша последних позиций, а не историю.
*/

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// Message повторяет алиас события из пакета storage.
type Message = interface {
	Key() string
	ToBytes() ([]byte, error)
}

type Connector struct {
	client *redis.Client
	config map[string]string
	prefix string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.config = cfg
	c.prefix = c.config["prefix"]
	if c.prefix == "" {
		c.prefix = "bus:"
	}

	db := 0
	if c.config["db"] != "" {
		var err error
		db, err = strconv.Atoi(c.config["db"])
		if err != nil {
			return fmt.Errorf("не удалось получить номер базы: %v", err)
		}
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", c.config["host"], c.config["port"]),
		Password: c.config["password"],
		DB:       db,
	})

	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
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

	if err := c.client.Set(context.Background(), c.prefix+msg.Key(), innerPkg, 0).Err(); err != nil {
		return fmt.Errorf("не удалось сохранить событие: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.client.Close()
}
