package storage

import (
	"errors"

	"github.com/daniil11ru/bustrack/cli/tracker/storage/store/nats"
	"github.com/daniil11ru/bustrack/cli/tracker/storage/store/rabbitmq"
	"github.com/daniil11ru/bustrack/cli/tracker/storage/store/redis"
	"github.com/daniil11ru/bustrack/cli/tracker/storage/store/tarantool_queue"
)

var ErrInvalidStorage = errors.New("storage not found")
var ErrUnknownStorage = errors.New("storage isn't support yet")

// Message — событие, пригодное для отправки во внешнее хранилище.
// Алиас, а не именованный интерфейс: пакеты хранилищ объявляют такой же
// алиас у себя и реализуют Saver без импорта этого пакета.
type Message = interface {
	// Key ключ маршрутизации события (идентификатор транспорта)
	Key() string

	// ToBytes сериализация события
	ToBytes() ([]byte, error)
}

type Store interface {
	Connector
	Saver
}

// Saver интерфейс для подключения внешних хранилищ
type Saver interface {
	// Save сохранение в хранилище
	Save(Message) error
}

// Connector интерфейс для подключения внешних хранилищ
type Connector interface {
	// Init установка соединения с хранилищем
	Init(map[string]string) error

	// Close закрытие соединения с хранилищем
	Close() error
}

// Repository набор выходных хранилищ
type Repository struct {
	storages []Saver
}

// AddStore добавляет хранилище для сохранения данных
func (r *Repository) AddStore(s Saver) {
	r.storages = append(r.storages, s)
}

// Save сохраняет событие во все установленные хранилища. Отказ одного
// хранилища не лишает события остальные.
func (r *Repository) Save(m Message) error {
	var errs []error
	for _, store := range r.storages {
		if err := store.Save(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadStorages загружает хранилища из структуры конфига
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	var db Store
	for store, params := range storages {
		switch store {
		case "rabbitmq":
			db = &rabbitmq.Connector{}
		case "nats":
			db = &nats.Connector{}
		case "redis":
			db = &redis.Connector{}
		case "tarantool_queue":
			db = &tarantool_queue.Connector{}
		default:
			return ErrUnknownStorage
		}

		if err := db.Init(params); err != nil {
			return err
		}

		r.AddStore(db)
	}
	return nil
}

// NewRepository создает пустой репозиторий
func NewRepository() *Repository {
	return &Repository{}
}
