package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openchami/redfish-relay/pkg/config"
	"github.com/openchami/redfish-relay/pkg/events"
	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/openchami/redfish-relay/pkg/metrics"
	"github.com/openchami/redfish-relay/pkg/resolver"
	"github.com/rs/zerolog"
)

const okBody = `<html><body><p>OK</p></body></html>`

// BusFactory constructs a fresh bus session for one lane (or its
// replacement after a crash).
type BusFactory func() (BusProducer, error)

// Listener is the HTTP receiver for pushed events. It accepts POST only,
// responds before handing work to a lane, and keeps every client sticky to
// the same lane for the life of that lane.
type Listener struct {
	addr string
	cfg  *config.Config

	mu          sync.Mutex
	clientLanes map[string]int
	nextLane    int
	lanes       []*Lane

	res         *resolver.Resolver
	alerts      *events.Broker
	busFactory  BusFactory
	supervisor  chan int
	logger      zerolog.Logger
	server      *http.Server
	lanesDoneWG sync.WaitGroup

	accepting int32
}

// NewListener builds a Listener with worker_count lanes, each with its own
// bus session from busFactory.
func NewListener(cfg *config.Config, res *resolver.Resolver, alerts *events.Broker, busFactory BusFactory) (*Listener, error) {
	l := &Listener{
		addr:        fmt.Sprintf("%s:%d", cfg.General.Address, cfg.General.Port),
		cfg:         cfg,
		clientLanes: make(map[string]int),
		res:         res,
		alerts:      alerts,
		busFactory:  busFactory,
		supervisor:  make(chan int, cfg.General.WorkerCount),
		logger:      log.WithComponent("listener"),
	}

	n := cfg.General.WorkerCount
	l.lanes = make([]*Lane, n)
	for i := 0; i < n; i++ {
		if err := l.startLane(i); err != nil {
			return nil, fmt.Errorf("starting lane %d: %w", i, err)
		}
	}
	l.wireRing()

	return l, nil
}

// wireRing points each lane's sentinel-forwarding channel at the next
// lane's input, leaving the last lane's unset so a shutdown sentinel
// travels the ring exactly once.
func (l *Listener) wireRing() {
	for i := 0; i < len(l.lanes)-1; i++ {
		l.lanes[i].next = l.lanes[i+1].input
	}
}

func (l *Listener) startLane(idx int) error {
	bus, err := l.busFactory()
	if err != nil {
		return err
	}
	lane := NewLane(idx, l.cfg, l.res, l.alerts, bus, nil)
	l.lanes[idx] = lane

	l.lanesDoneWG.Add(1)
	go func() {
		defer l.lanesDoneWG.Done()
		defer l.recoverLane(idx)
		lane.Run()
	}()
	return nil
}

// recoverLane reports a lane crash to the supervisor so a replacement can
// be started at the same index.
func (l *Listener) recoverLane(idx int) {
	if r := recover(); r != nil {
		l.logger.Error().Int("lane", idx).Interface("panic", r).Msg("lane crashed, reporting to supervisor")
		metrics.LaneRestartsTotal.Inc()
		select {
		case l.supervisor <- idx:
		default:
		}
	}
}

// Supervise drains dead-lane reports and restarts a fresh lane in place,
// preserving the client_ip -> lane_index mapping for already-assigned
// clients. It returns when ctx is cancelled.
func (l *Listener) Supervise(ctx context.Context) {
	for {
		select {
		case idx := <-l.supervisor:
			l.mu.Lock()
			if err := l.startLane(idx); err != nil {
				l.logger.Error().Int("lane", idx).Err(err).Msg("failed to restart lane")
			} else {
				l.lanes[idx].next = nextInputFor(l.lanes, idx)
			}
			l.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func nextInputFor(lanes []*Lane, idx int) chan job {
	if idx+1 < len(lanes) {
		return lanes[idx+1].input
	}
	return nil
}

// Ready reports whether the listener has successfully bound its address
// and is accepting connections. It backs the control plane's /healthz
// listener check.
func (l *Listener) Ready() bool {
	return atomic.LoadInt32(&l.accepting) == 1
}

// ListenAndServe binds the listener's address and blocks serving requests
// until Shutdown is called.
func (l *Listener) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/redfish", l.handle)
	mux.HandleFunc("/slingshot", l.handle)

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", l.addr, err)
	}

	l.server = &http.Server{
		Addr:    l.addr,
		Handler: mux,
	}

	atomic.StoreInt32(&l.accepting, 1)
	defer atomic.StoreInt32(&l.accepting, 0)

	l.logger.Info().Str("addr", l.addr).Msg("ingest listener starting")
	err = l.server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HTTPResponseDuration)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.ContentLength <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	body := make([]byte, r.ContentLength)
	if _, err := io.ReadFull(r.Body, body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(okBody))

	clientIP := clientIPFrom(r.RemoteAddr)
	l.dispatch(r.URL.Path, clientIP, body)
}

func clientIPFrom(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func (l *Listener) dispatch(path, clientIP string, body []byte) {
	l.mu.Lock()
	idx, ok := l.clientLanes[clientIP]
	if !ok {
		idx = l.nextLane % len(l.lanes)
		l.nextLane++
		l.clientLanes[clientIP] = idx
	}
	lane := l.lanes[idx]
	l.mu.Unlock()

	select {
	case lane.input <- job{path: path, clientIP: clientIP, body: body}:
	case <-time.After(time.Second):
		l.logger.Warn().Int("lane", idx).Str("client_ip", clientIP).Msg("lane input full, dropping payload")
		metrics.EventsDroppedTotal.WithLabelValues("lane_backpressure").Inc()
	}

	metrics.LaneQueueDepth.WithLabelValues(fmt.Sprintf("%d", idx)).Set(float64(len(lane.input)))
}

// Shutdown sends the ring-forwarding sentinel into lane 0 and waits for
// every lane goroutine to exit, then stops the HTTP server.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	if len(l.lanes) > 0 {
		l.lanes[0].input <- job{sentinel: true}
	}
	l.mu.Unlock()

	l.lanesDoneWG.Wait()

	if l.server != nil {
		return l.server.Shutdown(ctx)
	}
	return nil
}
