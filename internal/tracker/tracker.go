// Package tracker owns the feed session and the single consumer that
// decodes, filters and buffers token events.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stepamak/pump-tracker/internal/buffer"
	"github.com/stepamak/pump-tracker/internal/decoder"
	"github.com/stepamak/pump-tracker/internal/devlist"
	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/feed"
	"github.com/stepamak/pump-tracker/internal/filter"
	"github.com/stepamak/pump-tracker/internal/logger"
	"github.com/stepamak/pump-tracker/internal/observability"
)

// PreviewLimit caps LastMessage and the logged message preview.
const PreviewLimit = 800

// ErrStopped is returned by operations issued after Run has returned.
var ErrStopped = errors.New("tracker stopped")

// DevLists loads reputation snapshots and records list additions.
// *devlist.Loader implements it.
type DevLists interface {
	Load(ctx context.Context, useAllow, useDeny bool) (*devlist.Sets, error)
	Add(ctx context.Context, kind domain.ListKind, address, note string, addedAt int64) (string, error)
}

// Auditor receives every admission decision. *audit.Recorder implements it.
type Auditor interface {
	Record(rec domain.AdmissionRecord) bool
}

// Options configures a Tracker.
type Options struct {
	Endpoint string
	APIKey   string
	Feed     feed.Config
	Criteria domain.Criteria
	DevLists DevLists // optional
	Auditor  Auditor  // optional
	Inbox    int      // Default: 1024
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Now      func() time.Time
}

type itemKind int

const (
	itemMessage itemKind = iota
	itemState
	itemSession
	itemClear
	itemMark
)

type item struct {
	kind      itemKind
	text      string
	connected bool
	reason    string
	session   *session
	dev       string
}

// session is the per-Start context handed to the consumer in stream order.
type session struct {
	id        string
	startedAt time.Time
	criteria  domain.Criteria
	sets      *devlist.Sets
}

// Tracker connects the feed to the decoder, the filter and the buffer.
type Tracker struct {
	opts    Options
	feed    *feed.Manager
	log     *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	inbox   chan item
	stopped chan struct{}
	runOnce sync.Once

	startMu sync.Mutex

	received atomic.Uint64

	// consumer state, owned by Run
	session *session
	buf     *buffer.Recent
	marked  map[string]bool
	stats   Stats
	conn    Connection
	preview string
	seq     uint64

	snap   atomic.Pointer[Snapshot]
	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}

	rxLog rate.Sometimes
}

// New creates a tracker. Call Run to start the consumer and Start to
// connect.
func New(opts Options) *Tracker {
	if opts.Inbox <= 0 {
		opts.Inbox = 1024
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("tracker")
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.DefaultMetrics
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t := &Tracker{
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		inbox:   make(chan item, opts.Inbox),
		stopped: make(chan struct{}),
		buf:     buffer.NewRecent(opts.Criteria.MaxItems),
		marked:  make(map[string]bool),
		subs:    make(map[chan Snapshot]struct{}),
		rxLog:   rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	t.feed = feed.NewManager(t, &opts.Feed,
		feed.WithLogger(opts.Logger.Named("feed")),
		feed.WithMetrics(opts.Metrics),
	)
	t.snap.Store(&Snapshot{MaxItems: t.buf.Max()})
	return t
}

// ConnectionStateChanged implements feed.Listener.
func (t *Tracker) ConnectionStateChanged(connected bool, reason string) {
	t.enqueue(item{kind: itemState, connected: connected, reason: reason})
}

// MessageReceived implements feed.Listener.
func (t *Tracker) MessageReceived(text string) {
	t.received.Add(1)
	t.enqueue(item{kind: itemMessage, text: text})
}

// enqueue blocks while the inbox is full so message order is kept.
func (t *Tracker) enqueue(it item) bool {
	select {
	case t.inbox <- it:
		return true
	case <-t.stopped:
		return false
	}
}

// Start loads a fresh reputation snapshot, stops any running session and
// connects. Configuration errors are returned before anything is stopped.
func (t *Tracker) Start(ctx context.Context) error {
	if _, err := feed.ValidateEndpoint(t.opts.Endpoint, t.opts.APIKey); err != nil {
		return err
	}

	t.startMu.Lock()
	defer t.startMu.Unlock()

	select {
	case <-t.stopped:
		return ErrStopped
	default:
	}

	c := t.opts.Criteria
	var sets *devlist.Sets
	if t.opts.DevLists != nil && (c.UseAllowList || c.UseDenyList) {
		var err error
		sets, err = t.opts.DevLists.Load(ctx, c.UseAllowList, c.UseDenyList)
		if err != nil {
			// partial lists are still usable
			t.log.Warn("dev lists loaded with errors", logger.FieldErr(err))
		}
	}

	t.feed.Stop()

	s := &session{
		id:        uuid.NewString(),
		startedAt: t.now().UTC(),
		criteria:  c,
		sets:      sets,
	}
	if !t.enqueue(item{kind: itemSession, session: s}) {
		return ErrStopped
	}

	if err := t.feed.Start(t.opts.Endpoint, t.opts.APIKey); err != nil {
		return fmt.Errorf("start feed: %w", err)
	}
	t.log.Info("tracker started", logger.FieldSession(s.id),
		zap.Int("allow", sets.AllowLen()), zap.Int("deny", sets.DenyLen()))
	return nil
}

// Reconnect restarts the session with the current options.
func (t *Tracker) Reconnect(ctx context.Context) error {
	return t.Start(ctx)
}

// Stop closes the feed session. Buffered events are kept.
func (t *Tracker) Stop() {
	t.startMu.Lock()
	defer t.startMu.Unlock()
	t.feed.Stop()
}

// Clear empties the buffer.
func (t *Tracker) Clear() error {
	if !t.enqueue(item{kind: itemClear}) {
		return ErrStopped
	}
	return nil
}

// AddDev appends address to a dev list. The running session keeps its
// snapshot; buffered tokens from that developer are marked.
func (t *Tracker) AddDev(ctx context.Context, kind domain.ListKind, address, note string) (string, error) {
	if t.opts.DevLists == nil {
		return "", errors.New("dev lists are not configured")
	}
	path, err := t.opts.DevLists.Add(ctx, kind, address, note, t.now().UnixMilli())
	if err != nil {
		return path, err
	}
	if !t.enqueue(item{kind: itemMark, dev: address}) {
		return path, ErrStopped
	}
	return path, nil
}

// FeedState reports the connection manager state.
func (t *Tracker) FeedState() feed.State {
	return t.feed.State()
}

// Snapshot returns the latest published snapshot.
func (t *Tracker) Snapshot() Snapshot {
	return *t.snap.Load()
}

// Subscribe returns a channel that receives the latest snapshot after
// every change. Slow readers only see the newest one. Call cancel to
// unsubscribe.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	t.subsMu.Lock()
	ch <- t.Snapshot()
	t.subs[ch] = struct{}{}
	t.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.subsMu.Lock()
			delete(t.subs, ch)
			t.subsMu.Unlock()
		})
	}
}

// Run consumes the inbox until ctx is cancelled, then stops the feed.
// It must be called once.
func (t *Tracker) Run(ctx context.Context) error {
	started := false
	t.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("tracker: Run called twice")
	}

	defer t.feed.Stop()
	defer close(t.stopped)

	for {
		select {
		case <-ctx.Done():
			return nil
		case it := <-t.inbox:
			t.handle(it)
			t.publish()
		}
	}
}

func (t *Tracker) handle(it item) {
	switch it.kind {
	case itemSession:
		t.session = it.session
		t.stats = Stats{}
		clear(t.marked)
		t.conn = Connection{SessionID: it.session.id, StartedAt: it.session.startedAt, Reason: "connecting"}
		if evicted := t.buf.Resize(it.session.criteria.MaxItems); evicted > 0 {
			t.metrics.BufferEvictions.Add(float64(evicted))
		}
		t.metrics.BufferSize.Set(float64(t.buf.Len()))

	case itemState:
		t.conn.Connected = it.connected
		t.conn.Reason = it.reason

	case itemClear:
		t.buf.Clear()
		t.metrics.BufferSize.Set(0)

	case itemMark:
		t.marked[it.dev] = true

	case itemMessage:
		t.handleMessage(it.text)
	}
}

func (t *Tracker) handleMessage(text string) {
	t.preview = preview(text)
	t.rxLog.Do(func() {
		t.log.Debug("rx", zap.String("preview", t.preview))
	})

	start := time.Now()
	res, err := decoder.Decode(text)
	if err != nil {
		t.stats.Errors++
		t.metrics.RecordDecodeError()
		t.log.Debug("parse error", logger.FieldErr(err))
		return
	}
	t.metrics.RecordDecode(len(res.Events), res.Failed, time.Since(start))
	if len(res.Events) == 0 {
		t.log.Debug("no tokens extracted", zap.Int("elements", res.Elements))
		return
	}

	s := t.session
	if s == nil {
		s = &session{criteria: t.opts.Criteria}
	}
	now := t.now()

	for i := range res.Events {
		ev := &res.Events[i]

		if s.startedAt.IsZero() || filter.AdmitHistory(ev, s.criteria, s.startedAt) {
			d := filter.Evaluate(ev, s.criteria, s.sets, now)
			t.audit(s, ev, d, now)
			if !d.Accepted {
				t.stats.Rejected++
				t.metrics.RecordRejected(d.Step)
				t.log.Debug("drop", logger.FieldMint(ev.Mint), logger.FieldStep(d.Step), zap.String("reason", d.Reason))
				continue
			}
			evicted := t.buf.Insert(*ev)
			t.stats.Parsed++
			t.metrics.RecordAdmitted(t.buf.Len(), evicted)
			continue
		}

		t.stats.HistoryDropped++
		t.metrics.HistoryDropped.Inc()
		t.audit(s, ev, filter.Decision{Step: filter.StepHistory, Reason: "created before session start"}, now)
	}
}

func (t *Tracker) audit(s *session, ev *domain.TokenEvent, d filter.Decision, now time.Time) {
	if t.opts.Auditor == nil || s.id == "" {
		return
	}
	rec := domain.AdmissionRecord{
		SessionID:  s.id,
		Mint:       ev.Mint,
		DevAddress: ev.DevIdentity(),
		Accepted:   d.Accepted,
		Step:       d.Step,
		Reason:     d.Reason,
		DecidedAt:  now.UnixMilli(),
	}
	if ev.CreatedAt.Valid {
		rec.CreatedAt = ev.CreatedAt.Time.UnixMilli()
	}
	t.opts.Auditor.Record(rec)
}

// publish stores a new snapshot and hands it to every subscriber.
func (t *Tracker) publish() {
	t.seq++
	stats := t.stats
	stats.Received = t.received.Load()

	items := t.buf.Items()
	tokens := make([]Token, len(items))
	for i, ev := range items {
		tokens[i] = Token{TokenEvent: ev, DevMarked: t.marked[ev.DevIdentity()]}
	}

	snap := &Snapshot{
		Seq:         t.seq,
		Tokens:      tokens,
		MaxItems:    t.buf.Max(),
		Stats:       stats,
		Connection:  t.conn,
		LastMessage: t.preview,
	}
	t.snap.Store(snap)

	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- *snap:
		default:
			// replace the unread snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- *snap:
			default:
			}
		}
	}
}

// preview cuts text to at most PreviewLimit bytes on a rune boundary.
func preview(text string) string {
	if len(text) <= PreviewLimit {
		return text
	}
	cut := PreviewLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "...(cut)"
}
