package storage

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
)

// AsyncRepository снимает отправку во внешние хранилища с горячего
// пути приема отчетов: события копятся в буфере и сохраняются пулом
// воркеров. Переполненный буфер означает, что хранилища не успевают;
// событие в этом случае отбрасывается, а прием не блокируется.
type AsyncRepository struct {
	repo   *Repository
	ch     chan Message
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewAsyncRepository(repo *Repository, buffer, workers int) *AsyncRepository {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	ar := &AsyncRepository{
		repo:   repo,
		ch:     make(chan Message, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		ar.wg.Add(1)
		go ar.worker()
	}
	return ar
}

func (a *AsyncRepository) worker() {
	defer a.wg.Done()
	for {
		select {
		case msg, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.repo.Save(msg); err != nil {
				log.WithField("err", err).Error("Ошибка сохранения события")
			}
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *AsyncRepository) Save(m Message) error {
	select {
	case <-a.ctx.Done():
		return fmt.Errorf("асинхронный репозиторий был закрыт")
	default:
	}

	select {
	case a.ch <- m:
		return nil
	default:
		return fmt.Errorf("буфер событий переполнен")
	}
}

func (a *AsyncRepository) Close() {
	a.cancel()
	close(a.ch)
	a.wg.Wait()
}
