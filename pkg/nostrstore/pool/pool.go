// Package pool serializes access to a single SQLite connection shared by many
// concurrent callers.
//
// SQLite supports one writer, so the store funnels every statement through
// one *sql.Conn owned by a dedicated worker goroutine. Callers submit tasks
// with Interact and suspend on a result channel instead of blocking on a
// mutex; at most one task touches the connection at any instant. Submission
// order across callers is not otherwise guaranteed.
//
// Tasks are not abortable: once a task is accepted it runs to completion even
// if the submitting caller's context is cancelled. Only the result delivery
// is lost, never the mutation.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrPoolClosed indicates a task was submitted after Close. It is fatal to
// that call only, never to the pool.
var ErrPoolClosed = errors.New("connection pool closed")

// Pool owns one database connection and the worker goroutine that runs tasks
// against it.
type Pool struct {
	conn   *sql.Conn
	tasks  chan task
	quit   chan struct{}
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// task is a unit of work plus its pending result. The run closure delivers
// the result through a channel owned by the submitting Interact call.
type task struct {
	id  string
	run func(ctx context.Context, conn *sql.Conn)
}

// New acquires one connection from db and starts the worker. The logger may
// be nil to disable task logging.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Pool, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	p := &Pool{
		conn:   conn,
		tasks:  make(chan task),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go p.worker()
	return p, nil
}

// worker runs tasks one at a time until Close, then drains whatever was
// already accepted and releases the connection.
func (p *Pool) worker() {
	defer close(p.done)
	for {
		select {
		case t := <-p.tasks:
			p.runTask(t)
		case <-p.quit:
			for {
				select {
				case t := <-p.tasks:
					p.runTask(t)
				default:
					p.closeErr = p.conn.Close()
					return
				}
			}
		}
	}
}

func (p *Pool) runTask(t task) {
	if p.logger != nil {
		p.logger.Debug("storage task starting", slog.String("task_id", t.id))
	}
	// Tasks get a background context: caller cancellation must never abort
	// a statement mid-execution.
	t.run(context.Background(), p.conn)
	if p.logger != nil {
		p.logger.Debug("storage task completed", slog.String("task_id", t.id))
	}
}

// submit hands a task to the worker. The caller's ctx bounds only the wait
// for a worker slot, not task execution.
func (p *Pool) submit(ctx context.Context, t task) error {
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	select {
	case p.tasks <- t:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops task intake, waits for in-flight and already-queued tasks to
// finish, and releases the connection. Safe to call more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	<-p.done
	return p.closeErr
}

// result pairs a task's value with its error for channel delivery.
type result[T any] struct {
	val T
	err error
}

// Interact submits fn for exclusive access to the connection and waits for
// its result. Task-internal errors are returned unchanged. If ctx is done
// before the result arrives the task still runs; only the result is lost.
func Interact[T any](ctx context.Context, p *Pool, fn func(ctx context.Context, conn *sql.Conn) (T, error)) (T, error) {
	var zero T
	res := make(chan result[T], 1)
	t := task{
		id: uuid.NewString(),
		run: func(taskCtx context.Context, conn *sql.Conn) {
			v, err := fn(taskCtx, conn)
			res <- result[T]{val: v, err: err}
		},
	}
	if err := p.submit(ctx, t); err != nil {
		return zero, fmt.Errorf("submit storage task: %w", err)
	}
	select {
	case r := <-res:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
