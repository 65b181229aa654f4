package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/dissertrack/core"
)

// DefaultPollInterval is how often a Poller refreshes its board.
const DefaultPollInterval = 30 * time.Second

// Poller refreshes a board on a schedule and announces the meetings it had not seen before.
// A run is skipped while the previous one is still going.
type Poller struct {
	board    *Board
	broker   *Broker
	interval time.Duration
	logger   core.Logger

	mu     sync.Mutex
	seen   map[string]struct{}
	seeded bool
}

func NewPoller(board *Board, broker *Broker, interval time.Duration, logger core.Logger) (*Poller, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(board, "board"),
		vala.IsNotNil(broker, "broker"),
		core.IsSet(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		board:    board,
		broker:   broker,
		interval: interval,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}, nil
}

// Poll refreshes the board once, bypassing caches, and returns the meetings that are new since
// the previous poll. The first poll only records what exists.
func (p *Poller) Poll(ctx context.Context) []Meeting {
	p.board.Refresh(ctx, true)

	p.mu.Lock()
	defer p.mu.Unlock()

	var fresh []Meeting
	for _, m := range p.board.Meetings() {
		if _, ok := p.seen[m.ID]; ok {
			continue
		}
		p.seen[m.ID] = struct{}{}
		if p.seeded {
			fresh = append(fresh, m)
		}
	}
	p.seeded = true

	for _, m := range fresh {
		p.broker.Publish(NewEvent(EventCreated, m))
	}
	return fresh
}

// Run polls every interval until ctx is cancelled, then waits for a running poll to finish.
func (p *Poller) Run(ctx context.Context) error {
	logger := cronLogger{p.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	p.Poll(ctx)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", p.interval), func() { p.Poll(ctx) }); err != nil {
		return errors.Wrap(err, "scheduling poll")
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts a core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s %v: %v", msg, keysAndValues, err), err)
}
