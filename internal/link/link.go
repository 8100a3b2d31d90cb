package link

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/meshlink/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Owner receives every non-empty payload read from the bridge, in wire order.
// Inbound runs on the reader goroutine; a slow owner stalls that connection.
type Owner interface {
	Inbound(payload []byte, iface *Interface)
}

// OwnerFunc adapts a function to Owner.
type OwnerFunc func(payload []byte, iface *Interface)

func (f OwnerFunc) Inbound(payload []byte, iface *Interface) { f(payload, iface) }

// Dialer opens the bridge socket. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Option func(*Interface)

func WithLogger(logger zerolog.Logger) Option {
	return func(i *Interface) { i.logger = logger }
}

func WithMetrics(m *observability.LinkMetrics) Option {
	return func(i *Interface) { i.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(i *Interface) { i.tracer = tracer }
}

func WithDialer(d Dialer) Option {
	return func(i *Interface) { i.dialer = d }
}

// Interface is one bridge link owned by a router.
type Interface struct {
	cfg     Config
	owner   Owner
	logger  zerolog.Logger
	metrics *observability.LinkMetrics
	tracer  trace.Tracer
	dialer  Dialer
	rng     *rand.Rand

	online atomic.Bool
	state  atomic.Int32
	stats  counters

	connMu sync.Mutex
	conn   *linkConn
	connID atomic.Uint64

	writeMu sync.Mutex

	lifecycleMu  sync.Mutex
	started      bool
	shuttingDown atomic.Bool
	shutdown     chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	joinOnce     sync.Once
	done         chan struct{}
	delivering   atomic.Bool

	statusMu    sync.Mutex
	connectedAt time.Time
	lastErr     string
}

// New builds an interface in the disconnected state. Nothing is dialed until Start.
func New(cfg Config, owner Owner, opts ...Option) (*Interface, error) {
	if owner == nil {
		return nil, ErrOwnerRequired
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	i := &Interface{
		cfg:      cfg,
		owner:    owner,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	i.logger = observability.InterfaceLogger(log.Logger, cfg.Name, cfg.Address())
	for _, opt := range opts {
		opt(i)
	}
	if i.dialer == nil {
		i.dialer = &net.Dialer{
			Timeout:   cfg.Session.ConnectTimeout,
			KeepAlive: cfg.Session.KeepAlivePeriod,
		}
	}
	if i.tracer == nil {
		i.tracer = observability.Tracer()
	}
	i.setState(StateDisconnected)
	return i, nil
}

// Start launches the supervisor. It returns immediately; connecting happens
// in the background and never fails Start.
func (i *Interface) Start() error {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()
	if i.shuttingDown.Load() {
		return ErrDetached
	}
	if i.started {
		return ErrAlreadyStarted
	}
	i.started = true
	i.wg.Add(1)
	go i.supervise()
	return nil
}

// Detach shuts the interface down for good: no further dials and the open
// connection is closed before return. Goroutines are joined before return
// too, except when Detach is called from inside Owner.Inbound: the reader
// cannot wait for itself, so the join finishes after the callback returns
// and Done reports it.
func (i *Interface) Detach() {
	i.lifecycleMu.Lock()
	if !i.shuttingDown.Swap(true) {
		close(i.shutdown)
		i.cancel()
		i.connMu.Lock()
		i.setOnline(false)
		i.connMu.Unlock()
		if c := i.current(); c != nil {
			i.teardown(c, ErrDetached)
		}
		i.logger.Info().Msg("link detached")
	}
	i.lifecycleMu.Unlock()

	i.joinOnce.Do(func() {
		go func() {
			i.wg.Wait()
			i.setState(StateShutdown)
			close(i.done)
		}()
	})
	if i.delivering.Load() {
		return
	}
	<-i.done
}

// Done is closed once every goroutine of the interface has exited after Detach.
func (i *Interface) Done() <-chan struct{} {
	return i.done
}

func (i *Interface) isShutdown() bool {
	return i.shuttingDown.Load()
}

func (i *Interface) current() *linkConn {
	i.connMu.Lock()
	defer i.connMu.Unlock()
	return i.conn
}

// teardown fails c and, if c is still the current connection, clears the
// reference and marks the interface offline. It reports whether this call closed c.
func (i *Interface) teardown(c *linkConn, cause error) bool {
	if !c.fail(cause) {
		return false
	}
	i.connMu.Lock()
	if i.conn == c {
		i.conn = nil
		i.setOnline(false)
	}
	i.connMu.Unlock()
	if cause != ErrDetached {
		i.recordError(cause)
	}
	return true
}

func (i *Interface) Name() string { return i.cfg.Name }

func (i *Interface) Config() Config { return i.cfg }

// MTU is advisory metadata for the router; frames are not checked against it.
func (i *Interface) MTU() int { return i.cfg.Session.MTU }

func (i *Interface) Bitrate() int { return i.cfg.Session.Bitrate }

func (i *Interface) IFACSize() int { return i.cfg.Session.IFACSize }

// ShouldIngressLimit is always false; the bridge applies no ingress control.
func (i *Interface) ShouldIngressLimit() bool { return false }

func (i *Interface) String() string {
	return fmt.Sprintf("MeshCoreInterface[%s]", i.cfg.Name)
}
