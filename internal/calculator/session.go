package calculator

import (
	"context"
	"errors"
	"sync"
	"time"

	"forcecalc/internal/gesture"
	"forcecalc/internal/history"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned for key events on a closed session.
var ErrSessionClosed = errors.New("session closed")

// Panel is a secondary screen opened by a long press.
type Panel string

const (
	PanelNone    Panel = ""
	PanelHistory Panel = "history"
	PanelForce   Panel = "force"
)

// Options configures sessions.
type Options struct {
	Clock         gesture.Clock
	LongPress     time.Duration
	ModeToggle    time.Duration
	ToastDuration time.Duration

	History  History
	Enricher *Enricher
	Logger   *zap.Logger

	// NewID generates record IDs; defaults to random UUIDs.
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = gesture.SystemClock()
	}
	if o.LongPress <= 0 {
		o.LongPress = 600 * time.Millisecond
	}
	if o.ModeToggle <= 0 {
		o.ModeToggle = 800 * time.Millisecond
	}
	if o.ToastDuration <= 0 {
		o.ToastDuration = 1500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	return o
}

// View is a snapshot of a session for display.
type View struct {
	ID         string    `json:"session_id"`
	Display    string    `json:"display"`
	Phase      Phase     `json:"phase"`
	Operator   *Operator `json:"operator,omitempty"`
	Operands   []string  `json:"operands"`
	NormalMode bool      `json:"normal_mode"`
	Toast      string    `json:"toast,omitempty"`
	Panel      Panel     `json:"panel,omitempty"`
}

// Session is one calculator: entry buffer, operation chain, forcing
// configuration and the long-press buttons. All transitions run under mu.
type Session struct {
	id   string
	opts Options

	mu      sync.Mutex
	buf     Buffer
	chain   Chain
	force   ForceConfig
	panel   Panel
	toast   string
	toastAt time.Time
	closed  bool
	builder recordBuilder

	buttons map[Key]*gesture.Button
}

// NewSession returns a session showing "0" with the given forcing configuration.
func NewSession(id string, cfg ForceConfig, opts Options) *Session {
	opts = opts.withDefaults()

	s := &Session{
		id:      id,
		opts:    opts,
		buf:     NewBuffer(),
		force:   cfg,
		builder: recordBuilder{now: opts.Clock.Now, newID: opts.NewID},
	}

	s.buttons = map[Key]*gesture.Button{
		OperatorKey(OpAdd):      gesture.NewButton(opts.Clock, opts.LongPress, func() { s.openPanel(PanelForce) }),
		OperatorKey(OpDivide):   gesture.NewButton(opts.Clock, opts.LongPress, func() { s.openPanel(PanelForce) }),
		OperatorKey(OpMultiply): gesture.NewButton(opts.Clock, opts.LongPress, func() { s.openPanel(PanelHistory) }),
		{Kind: KeyDecimal}:      gesture.NewButton(opts.Clock, opts.ModeToggle, s.toggleNormalMode),
	}
	return s
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Press is a tap: press-down immediately followed by press-up.
func (s *Session) Press(ctx context.Context, k Key) (*history.Record, error) {
	rec, err := s.Down(ctx, k)
	if err != nil {
		return nil, err
	}
	upRec, err := s.Up(ctx, k)
	if rec == nil {
		rec = upRec
	}
	return rec, err
}

// Down handles press-down. Operator keys apply immediately and arm their
// long-press; the decimal key only arms its hold. It returns the history
// record emitted by this event, if any.
func (s *Session) Down(ctx context.Context, k Key) (*history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	keysCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("key", k.String())))

	if b, ok := s.buttons[k]; ok {
		b.Down()
		if k.Kind == KeyDecimal {
			return nil, nil
		}
	}
	return s.applyLocked(ctx, k), nil
}

// Up handles press-up. A decimal press shorter than the mode-toggle
// threshold inserts the decimal point here.
func (s *Session) Up(ctx context.Context, k Key) (*history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	b, ok := s.buttons[k]
	if !ok {
		return nil, nil
	}
	wasPressed := b.Pressed()
	held := b.Up()
	if k.Kind == KeyDecimal && wasPressed && !held {
		return s.applyLocked(ctx, k), nil
	}
	return nil, nil
}

// SetForceConfig replaces the forcing configuration for later evaluations.
func (s *Session) SetForceConfig(cfg ForceConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.force = cfg
}

// ForceConfig returns the current forcing configuration.
func (s *Session) ForceConfig() ForceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.force
}

// ClosePanel dismisses any panel opened by a long press.
func (s *Session) ClosePanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel = PanelNone
}

// View returns a display snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:         s.id,
		Display:    s.buf.Text(),
		Phase:      s.chain.Phase(),
		Operands:   s.chain.Operands(),
		NormalMode: s.force.NormalModeEnabled,
		Panel:      s.panel,
	}
	if v.Operands == nil {
		v.Operands = []string{}
	}
	if _, op, ok := s.chain.Pending(); ok {
		v.Operator = &op
	}
	if s.toast != "" && s.opts.Clock.Now().Before(s.toastAt.Add(s.opts.ToastDuration)) {
		v.Toast = s.toast
	}
	return v
}

// Close cancels outstanding hold timers. Later key events fail with
// ErrSessionClosed and late timer fires are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, b := range s.buttons {
		b.Close()
	}
}

func (s *Session) applyLocked(ctx context.Context, k Key) *history.Record {
	switch k.Kind {
	case KeyDigit:
		if s.buf.AppendDigit(k.Digit) {
			s.chain.OperandStarted()
		}
	case KeyDecimal:
		if s.buf.AppendDecimal() {
			s.chain.OperandStarted()
		}
	case KeySign:
		s.buf.ToggleSign()
	case KeyPercent:
		s.buf.ApplyPercent()
	case KeyBackspace:
		s.buf.Backspace()
	case KeyClear:
		s.buf.Clear()
		s.chain.Reset()
	case KeyOperator:
		total, committed := s.chain.PressOperator(k.Op, s.buf.Text(), s.buf.Value())
		if committed {
			s.buf.show(FormatNumber(total))
		} else {
			s.buf.wait()
		}
	case KeyEquals:
		return s.equalsLocked(ctx)
	}
	return nil
}

func (s *Session) equalsLocked(ctx context.Context) *history.Record {
	previous, op, ok := s.chain.Pending()
	if !ok {
		year, ok := birthYear(s.buf.Text())
		if !ok {
			return nil
		}
		rec := s.builder.age(year, s.buf.Text())
		s.buf.wait()
		s.emit(ctx, rec)
		return &rec
	}

	text, current := s.buf.Text(), s.buf.Value()
	_, _, operands := s.chain.Complete(text)

	ev := Evaluation{Previous: previous, Current: current, Op: op}
	res := Resolve(ev, s.force)
	rec := s.builder.standard(ev, res, operands)

	var pincode string
	if op.Forceable() {
		if p, ok := findPincode(operands); ok {
			pincode = p
			rec.Pincode = history.Ptr(p)
		}
	}

	s.buf.show(FormatNumber(res.Reported))

	attrs := metric.WithAttributes(
		attribute.String("operation", op.String()),
		attribute.Bool("forced", res.Forced),
	)
	equalsCounter.Add(ctx, 1, attrs)
	resultGauge.Record(ctx, res.Actual, attrs)

	s.emit(ctx, rec)

	if pincode != "" && s.opts.Enricher != nil {
		s.opts.Enricher.Enqueue(ctx, rec.ID, pincode)
	}
	return &rec
}

// emit hands rec to the history collaborator. Failures are logged only.
func (s *Session) emit(ctx context.Context, rec history.Record) {
	trace.SpanFromContext(ctx).AddEvent("history.record", trace.WithAttributes(
		attribute.String("history.record_id", rec.ID),
		attribute.String("history.operation", rec.OperationType),
	))

	if s.opts.History == nil {
		return
	}
	if err := s.opts.History.Add(ctx, rec); err != nil {
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "history.add")))
		s.opts.Logger.Error("history append failed",
			zap.String("session_id", s.id),
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
	}
}

func (s *Session) openPanel(p Panel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.panel = p
	s.opts.Logger.Debug("panel opened", zap.String("session_id", s.id), zap.String("panel", string(p)))
}

func (s *Session) toggleNormalMode() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.force.NormalModeEnabled = !s.force.NormalModeEnabled
	s.toast = "Normal mode off"
	if s.force.NormalModeEnabled {
		s.toast = "Normal mode on"
	}
	s.toastAt = s.opts.Clock.Now()
}
