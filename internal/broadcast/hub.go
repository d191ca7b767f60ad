package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/metrics"
)

const (
	defaultBufferSize   = 32
	defaultPollInterval = 15 * time.Second
)

type Options struct {
	BufferSize   int
	PollInterval time.Duration
	InstanceID   string
	Metrics      *metrics.BroadcastMetrics
	Logger       *logger.Logger
	Now          func() time.Time
}

// Hub fans events out to in-process subscriptions and, when a bridge is
// attached, to the other instances.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}

	bufferSize   int
	pollInterval time.Duration
	origin       string
	bridge       Bridge
	metrics      *metrics.BroadcastMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewHub(opts Options) *Hub {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.InstanceID == "" {
		opts.InstanceID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Hub{
		rooms:        make(map[string]map[*Subscription]struct{}),
		bufferSize:   opts.BufferSize,
		pollInterval: opts.PollInterval,
		origin:       opts.InstanceID,
		metrics:      opts.Metrics,
		logg:         opts.Logger,
		now:          opts.Now,
	}
}

// AttachBridge enables cross-instance delivery. Call before Run.
func (h *Hub) AttachBridge(b Bridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// PollInterval is the reconciliation period advertised to subscribers.
func (h *Hub) PollInterval() time.Duration {
	return h.pollInterval
}

// InstanceID identifies this node on the bridge.
func (h *Hub) InstanceID() string {
	return h.origin
}

// Subscribe joins the given rooms. Reconnecting clients subscribe again; nothing is replayed.
func (h *Hub) Subscribe(rooms ...string) *Subscription {
	sub := &Subscription{
		id:    uuid.NewString(),
		rooms: rooms,
		ch:    make(chan Event, h.bufferSize),
		hub:   h,
	}

	h.mu.Lock()
	for _, room := range rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Subscription]struct{})
			h.rooms[room] = members
		}
		members[sub] = struct{}{}
	}
	h.mu.Unlock()

	h.metrics.AddSubscribers(1)
	return sub
}

// Publish delivers evt locally and forwards it over the bridge.
func (h *Hub) Publish(ctx context.Context, evt Event) {
	if evt.Origin == "" {
		evt.Origin = h.origin
	}
	if evt.At.IsZero() {
		evt.At = h.now().UTC()
	}
	h.deliver(evt)

	h.mu.RLock()
	bridge := h.bridge
	h.mu.RUnlock()
	if bridge == nil {
		return
	}
	if err := bridge.Forward(ctx, evt); err != nil {
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
			"event": string(evt.Name),
			"error": err.Error(),
		}), "broadcast bridge forward failed")
	}
}

// Run consumes bridge traffic until ctx ends. It returns immediately without a bridge.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.RLock()
	bridge := h.bridge
	h.mu.RUnlock()
	if bridge == nil {
		return nil
	}
	return bridge.Receive(ctx, h.receive)
}

func (h *Hub) receive(evt Event) {
	if evt.Origin == h.origin {
		return
	}
	h.deliver(evt)
}

func (h *Hub) deliver(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Subscription]struct{})
	for _, room := range Rooms(evt) {
		for sub := range h.rooms[room] {
			if _, dup := seen[sub]; dup {
				continue
			}
			seen[sub] = struct{}{}
			select {
			case sub.ch <- evt:
				h.metrics.IncDelivered(string(evt.Name))
			default:
				h.metrics.IncDropped(string(evt.Name))
			}
		}
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	for _, room := range sub.rooms {
		members := h.rooms[room]
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(sub.ch)
	h.mu.Unlock()

	h.metrics.AddSubscribers(-1)
}

// Subscribers counts subscriptions currently in room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Subscription is one connected viewer.
type Subscription struct {
	id    string
	rooms []string
	ch    chan Event
	hub   *Hub
	once  sync.Once
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) Rooms() []string {
	return s.rooms
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// PollInterval tells the viewer how often to reconcile with a full snapshot.
func (s *Subscription) PollInterval() time.Duration {
	return s.hub.pollInterval
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}
