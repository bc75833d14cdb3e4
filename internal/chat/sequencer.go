package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"campus-chat-be/internal/pkg/logger"
)

const (
	defaultQueueSize   = 64
	defaultIdleTimeout = 5 * time.Minute
)

// errWorkerRetired means the worker exited idle before taking the command;
// the command never ran and can go to a fresh worker.
var errWorkerRetired = errors.New("room worker retired")

// RoomState is owned by a room's worker and only touched from its tasks.
type RoomState struct {
	RoomId        string
	lastTimestamp time.Time
	seeded        bool
}

// NextTimestamp returns now, clamped so that it never goes below the last
// timestamp handed out for this room.
func (s *RoomState) NextTimestamp(now time.Time) time.Time {
	if now.Before(s.lastTimestamp) {
		now = s.lastTimestamp
	}
	s.lastTimestamp = now
	s.seeded = true
	return now
}

// Observe raises the clamp floor to t, e.g. from persisted history.
func (s *RoomState) Observe(t time.Time) {
	if t.After(s.lastTimestamp) {
		s.lastTimestamp = t
	}
	s.seeded = true
}

func (s *RoomState) Seeded() bool {
	return s.seeded
}

// Task runs on a room's worker goroutine.
type Task func(ctx context.Context, state *RoomState) error

type command struct {
	ctx   context.Context
	task  Task
	reply chan error
}

type roomWorker struct {
	state    *RoomState
	commands chan command
	cancel   context.CancelFunc
	done     chan struct{}
	retired  atomic.Bool
}

func (w *roomWorker) closedErr() error {
	if w.retired.Load() {
		return errWorkerRetired
	}
	return ErrRoomClosed
}

// Sequencer runs one worker goroutine per room so that every write and
// broadcast for a room happens in submission order. A worker with nothing to
// do for idleTimeout exits; the next task for its room starts a new one.
type Sequencer struct {
	mu          sync.Mutex
	workers     map[string]*roomWorker
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	queueSize   int
	idleTimeout time.Duration
	logger      logger.ILogger
}

func NewSequencer(parent context.Context, log logger.ILogger) *Sequencer {
	ctx, cancel := context.WithCancel(parent)
	return &Sequencer{
		workers:     make(map[string]*roomWorker),
		ctx:         ctx,
		cancel:      cancel,
		queueSize:   defaultQueueSize,
		idleTimeout: defaultIdleTimeout,
		logger:      log,
	}
}

// Do runs task on the room's worker and waits for its result.
func (s *Sequencer) Do(ctx context.Context, roomId string, task Task) error {
	for {
		w, err := s.worker(roomId)
		if err != nil {
			return err
		}
		err = s.submit(ctx, w, task)
		if errors.Is(err, errWorkerRetired) {
			continue
		}
		return err
	}
}

func (s *Sequencer) submit(ctx context.Context, w *roomWorker, task Task) error {
	cmd := command{ctx: ctx, task: task, reply: make(chan error, 1)}
	select {
	case w.commands <- cmd:
	case <-w.done:
		return w.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-w.done:
		// The worker may have finished the task right before stopping.
		select {
		case err := <-cmd.reply:
			return err
		default:
			return w.closedErr()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sequencer) worker(roomId string) (*roomWorker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, ErrRoomClosed
	}
	if w, ok := s.workers[roomId]; ok {
		return w, nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	w := &roomWorker{
		state:    &RoomState{RoomId: roomId},
		commands: make(chan command, s.queueSize),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.workers[roomId] = w

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(w.done)
		s.run(ctx, w)
	}()
	return w, nil
}

func (s *Sequencer) run(ctx context.Context, w *roomWorker) {
	idle := time.NewTimer(s.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.commands:
			cmd.reply <- s.execute(cmd, w.state)
			idle.Reset(s.idleTimeout)
		case <-idle.C:
			if s.retire(w) {
				return
			}
			idle.Reset(s.idleTimeout)
		}
	}
}

// retire unregisters an idle worker. It refuses while commands are queued;
// anything sent after it returns true is answered with errWorkerRetired.
func (s *Sequencer) retire(w *roomWorker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(w.commands) > 0 {
		return false
	}
	if cur, ok := s.workers[w.state.RoomId]; ok && cur == w {
		delete(s.workers, w.state.RoomId)
	}
	w.retired.Store(true)
	w.cancel()

	s.logger.Debug("ChatProtocol", "Idle room worker retired", map[string]interface{}{
		"room_id": w.state.RoomId,
	})
	return true
}

func (s *Sequencer) execute(cmd command, state *RoomState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ChatProtocol", "Room task panicked", map[string]interface{}{
				"room_id": state.RoomId,
				"panic":   fmt.Sprint(r),
			})
			err = fmt.Errorf("room task panicked: %v", r)
		}
	}()
	if cmd.ctx.Err() != nil {
		return cmd.ctx.Err()
	}
	return cmd.task(cmd.ctx, state)
}

// Stop terminates the room's worker. A later Do starts a fresh one.
func (s *Sequencer) Stop(roomId string) {
	s.mu.Lock()
	w, ok := s.workers[roomId]
	delete(s.workers, roomId)
	s.mu.Unlock()

	if ok {
		w.cancel()
	}
}

func (s *Sequencer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// Shutdown stops every worker and waits for them to exit.
func (s *Sequencer) Shutdown() {
	s.mu.Lock()
	s.cancel()
	s.workers = make(map[string]*roomWorker)
	s.mu.Unlock()

	s.wg.Wait()
}
