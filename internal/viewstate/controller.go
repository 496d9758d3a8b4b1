package viewstate

import (
	"context"
	"strings"
	"sync"

	"covid_tracker/internal/covid"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var logger = logrus.WithField("pkg", "viewstate")

const (
	ErrClosed         = errors.Sentinel("view state controller closed")
	ErrEmptyCode      = errors.Sentinel("country code is required")
	ErrNothingToRetry = errors.Sentinel("no failed request to retry")
)

// Fetcher is the upstream the controller pulls data from.
type Fetcher interface {
	Global(ctx context.Context) (covid.AggregateRecord, error)
	Countries(ctx context.Context) ([]covid.CountryRecord, error)
	Country(ctx context.Context, code string) (covid.AggregateRecord, error)
}

// envelope 携带事件，applied 在状态更新完成后关闭
type envelope struct {
	event   Event
	applied chan struct{}
}

// Controller owns the single ViewState. All transitions go through one
// goroutine, so readers always see a fully applied state and results are
// applied in the order their requests resolve.
type Controller struct {
	fetcher   Fetcher
	ctx       context.Context
	events    chan envelope
	snapshots chan chan ViewState
	quit      chan struct{}
	closeOnce sync.Once
}

// NewController starts the state goroutine. ctx bounds every upstream
// request the controller issues; it is not tied to any HTTP request.
func NewController(ctx context.Context, fetcher Fetcher) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		ctx:       ctx,
		events:    make(chan envelope),
		snapshots: make(chan chan ViewState),
		quit:      make(chan struct{}),
	}
	go c.loop(Initial())
	return c
}

// Close stops the state goroutine. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *Controller) closed() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

func (c *Controller) loop(state ViewState) {
	for {
		select {
		case env := <-c.events:
			state = Reduce(state, env.event)
			close(env.applied)
		case reply := <-c.snapshots:
			reply <- state
		case <-c.quit:
			return
		}
	}
}

func (c *Controller) dispatch(ev Event) error {
	if c.closed() {
		return ErrClosed
	}
	env := envelope{event: ev, applied: make(chan struct{})}
	select {
	case c.events <- env:
	case <-c.quit:
		return ErrClosed
	}
	<-env.applied
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() (ViewState, error) {
	if c.closed() {
		return ViewState{}, ErrClosed
	}
	reply := make(chan ViewState, 1)
	select {
	case c.snapshots <- reply:
	case <-c.quit:
		return ViewState{}, ErrClosed
	}
	return <-reply, nil
}

// Start issues the global aggregate and country list requests concurrently.
// Each result is applied as soon as it arrives; the returned Pending only
// lets the caller wait for both.
func (c *Controller) Start() *Pending {
	p := newPending()

	var g errgroup.Group
	g.Go(c.loadGlobal)
	g.Go(c.loadCountries)

	go func() { p.finish(g.Wait()) }()
	return p
}

func (c *Controller) loadGlobal() error {
	rec, err := c.fetcher.Global(c.ctx)
	if err != nil {
		return c.fail(SourceGlobal, "", errors.WrapIf(err, "load global aggregate"))
	}
	return c.dispatch(GlobalLoaded{Record: rec})
}

func (c *Controller) loadCountries() error {
	records, err := c.fetcher.Countries(c.ctx)
	if err != nil {
		return c.fail(SourceCountries, "", errors.WrapIf(err, "load country list"))
	}
	logger.WithField("countries", len(records)).Info("country list loaded")
	return c.dispatch(CountriesLoaded{Records: records})
}

// SelectCountry marks the state as loading and requests the aggregate for
// code (or the worldwide total for the sentinel). Earlier selections are not
// cancelled; whichever request resolves last wins.
func (c *Controller) SelectCountry(code string) (*Pending, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if err := c.dispatch(SelectionStarted{Code: code}); err != nil {
		return nil, err
	}

	p := newPending()
	go func() { p.finish(c.resolveSelection(code)) }()
	return p, nil
}

func (c *Controller) resolveSelection(code string) error {
	var (
		rec covid.AggregateRecord
		err error
	)
	if code == covid.WorldwideCode {
		rec, err = c.fetcher.Global(c.ctx)
	} else {
		rec, err = c.fetcher.Country(c.ctx, code)
	}
	if err != nil {
		return c.fail(SourceSelection, code, errors.WrapIfWithDetails(err, "select country", "code", code))
	}
	return c.dispatch(SelectionResolved{Code: code, Record: rec})
}

// SelectStatistic only switches the active statistic; no request is made.
func (c *Controller) SelectStatistic(stat covid.Statistic) error {
	return c.dispatch(StatisticSelected{Statistic: stat})
}

// Retry re-issues every request that has a recorded failure. A failed
// selection replaces a global retry, since both would set the current record.
func (c *Controller) Retry() (*Pending, error) {
	state, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	if len(state.Failures) == 0 {
		return nil, ErrNothingToRetry
	}

	var g errgroup.Group
	if f := state.FailureFor(SourceSelection); f != nil {
		code := f.Code
		if err := c.dispatch(SelectionStarted{Code: code}); err != nil {
			return nil, err
		}
		g.Go(func() error { return c.resolveSelection(code) })
	} else if state.FailureFor(SourceGlobal) != nil {
		g.Go(c.loadGlobal)
	}
	if state.FailureFor(SourceCountries) != nil {
		g.Go(c.loadCountries)
	}

	p := newPending()
	go func() { p.finish(g.Wait()) }()
	return p, nil
}

// fail records the failure in the state and hands err back to the caller.
func (c *Controller) fail(source Source, code string, err error) error {
	logger.WithError(err).WithField("source", source).Warn("upstream request failed")
	if derr := c.dispatch(FetchFailed{Source: source, Code: code, Err: err}); derr != nil {
		return derr
	}
	return err
}
