package transport

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// workerFunc processes one queued task; a non-nil error is logged and
// returned to the tomb, which kills the tomb and every goroutine it
// supervises, the pool included.
type workerFunc = func(t *tomb.Tomb, task any) error

// workerPool drains a shared task queue, starting one goroutine per task
// and running at most n of them at once, close to the shape the TCP server used for per-connection reads
// before this package existed — kept here since both the TCP and
// websocket listeners need one.
type workerPool struct {
	n     int
	tasks chan any
}

func newWorkerPool(size int) *workerPool {
	return &workerPool{n: size, tasks: make(chan any, taskChanSize)}
}

func (p *workerPool) addTask(task any) { p.tasks <- task }

// setup caps concurrent in-flight tasks at n using a buffered-channel
// semaphore instead of polling a shared counter: acquiring a slot blocks
// (no busy spin) and releasing one is just draining the channel, so no
// separate lock is needed to keep the active count consistent across
// goroutines.
func (p *workerPool) setup(tmb *tomb.Tomb, work workerFunc) {
	slots := make(chan struct{}, p.n)
	for {
		select {
		case <-tmb.Dying():
			return
		case task := <-p.tasks:
			select {
			case slots <- struct{}{}:
			case <-tmb.Dying():
				return
			}
			tmb.Go(func() error {
				defer func() { <-slots }()
				return p.run(tmb, work, task)
			})
		}
	}
}

func (p *workerPool) run(tmb *tomb.Tomb, work workerFunc, task any) error {
	if err := work(tmb, task); err != nil {
		log.Error().Err(err).Msg("transport worker exiting")
		return err
	}
	return nil
}
