package webhooks

import (
	"bytes"
	"container/heap"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/log"

	"github.com/Mrinallcx/payagent-core/types"
)

// Delivery signature header set.
const (
	HeaderEventType = "X-Event-Type"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// Clock abstracts time for payload timestamps and bookkeeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SecretDecrypter recovers a subscription's signing secret at delivery
// time. Secrets are stored encrypted and decrypted just-in-time.
type SecretDecrypter interface {
	Decrypt(stored string) (string, error)
}

// MetricsSink receives delivery telemetry. A nil sink is valid.
type MetricsSink interface {
	IncWebhookDelivery(event, outcome string)
}

// delivery is one scheduled attempt against one subscription.
type delivery struct {
	subscriptionID string
	event          string
	payload        []byte
	attempt        int
	due            time.Time
}

// deliveryHeap orders pending deliveries by due time.
type deliveryHeap []*delivery

func (h deliveryHeap) Len() int            { return len(h) }
func (h deliveryHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h deliveryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deliveryHeap) Push(x interface{}) { *h = append(*h, x.(*delivery)) }
func (h *deliveryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return d
}

// Dispatcher fans completed/created/expired payment events out to active
// subscribers, signed, with retry and auto-deactivation. Dispatch is
// fire-and-forget: the triggering request never waits on delivery.
//
// Pending retries live in process memory only. A crash mid-sequence drops
// the remaining attempts; that gap is inherited from the original design
// and deliberately not papered over here.
type Dispatcher struct {
	store        types.Store
	secrets      SecretDecrypter
	logger       log.Logger
	client       *http.Client
	clock        Clock
	metrics      MetricsSink
	retryDelays  []time.Duration
	failureLimit int
	workerCount  int

	mu      sync.Mutex
	pending deliveryHeap
	wake    chan struct{}
	queue   chan *delivery
}

type Option func(*Dispatcher)

// WithRetryDelays overrides the retry backoff schedule, used by tests.
func WithRetryDelays(delays []time.Duration) Option {
	return func(d *Dispatcher) { d.retryDelays = delays }
}

func WithClock(clock Clock) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

func WithMetrics(m MetricsSink) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(store types.Store, secrets SecretDecrypter, cfg types.WebhookSettings, logger log.Logger, opts ...Option) *Dispatcher {
	queueSize := cfg.QueueSize
	if queueSize == 0 {
		queueSize = 1000
	}

	d := &Dispatcher{
		store:        store,
		secrets:      secrets,
		logger:       logger.With("component", "webhook-dispatcher"),
		client:       &http.Client{Timeout: cfg.DeliveryTimeout()},
		clock:        systemClock{},
		retryDelays:  []time.Duration{30 * time.Second, 5 * time.Minute, 30 * time.Minute},
		failureLimit: cfg.FailureLimit(),
		workerCount:  cfg.Workers(),
		wake:         make(chan struct{}, 1),
		queue:        make(chan *delivery, queueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start spins up the scheduler and the delivery worker pool. Both stop
// when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.run(ctx)
	for i := 0; i < d.workerCount; i++ {
		go d.worker(ctx)
	}
}

// Dispatch queues one delivery per interested active subscription for the
// parties implicated in the event. It returns immediately.
func (d *Dispatcher) Dispatch(eventType string, payment *types.Payment) {
	ctx := context.Background()

	subs, err := d.store.SubscriptionsForParties(ctx, payment.Parties())
	if err != nil {
		d.logger.Error("Unable to load subscriptions for event", "event", eventType, "payment", payment.ID, "error", err)
		return
	}

	now := d.clock.Now()
	payload, err := BuildPayload(eventType, payment, now)
	if err != nil {
		d.logger.Error("Unable to build webhook payload", "event", eventType, "payment", payment.ID, "error", err)
		return
	}

	queued := 0
	for _, sub := range subs {
		// new deliveries are never scheduled for inactive subscriptions
		if !sub.Active || !sub.WantsEvent(eventType) {
			continue
		}
		d.schedule(&delivery{
			subscriptionID: sub.ID,
			event:          eventType,
			payload:        payload,
			due:            now,
		})
		queued++
	}

	d.logger.Debug("Dispatched event", "event", eventType, "payment", payment.ID, "deliveries", queued)
}

func (d *Dispatcher) schedule(del *delivery) {
	d.mu.Lock()
	heap.Push(&d.pending, del)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// run moves due deliveries from the min-heap onto the worker queue.
func (d *Dispatcher) run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		d.mu.Lock()
		var wait time.Duration
		for d.pending.Len() > 0 {
			next := d.pending[0]
			until := next.due.Sub(d.clock.Now())
			if until > 0 {
				wait = until
				break
			}
			heap.Pop(&d.pending)
			select {
			case d.queue <- next:
			default:
				d.logger.Error("Delivery queue full, dropping delivery", "subscription", next.subscriptionID, "event", next.event)
			}
		}
		d.mu.Unlock()

		if wait == 0 {
			wait = time.Hour
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case del := <-d.queue:
			d.attempt(ctx, del)
		}
	}
}

// attempt performs one delivery and its bookkeeping. Retries already in
// flight proceed even when the subscription was deactivated mid-sequence.
func (d *Dispatcher) attempt(ctx context.Context, del *delivery) {
	sub, ok, err := d.store.GetSubscription(ctx, del.subscriptionID)
	if err != nil || !ok {
		d.logger.Error("Unable to load subscription for delivery", "subscription", del.subscriptionID, "error", err)
		return
	}

	err = d.deliver(ctx, sub, del)
	now := d.clock.Now()

	if err == nil {
		if _, uerr := d.store.UpdateSubscription(ctx, sub.ID, func(s *types.WebhookSubscription) {
			s.RecordSuccess(now)
		}); uerr != nil {
			d.logger.Error("Unable to record delivery success", "subscription", sub.ID, "error", uerr)
		}
		if d.metrics != nil {
			d.metrics.IncWebhookDelivery(del.event, "success")
		}
		return
	}

	d.logger.Info("Webhook delivery failed", "subscription", sub.ID, "event", del.event, "attempt", del.attempt, "error", err)

	var deactivated bool
	if _, uerr := d.store.UpdateSubscription(ctx, sub.ID, func(s *types.WebhookSubscription) {
		deactivated = s.RecordFailure(now, d.failureLimit)
	}); uerr != nil {
		d.logger.Error("Unable to record delivery failure", "subscription", sub.ID, "error", uerr)
	}
	if deactivated {
		d.logger.Info("Subscription deactivated after consecutive failures", "subscription", sub.ID, "limit", d.failureLimit)
	}
	if d.metrics != nil {
		d.metrics.IncWebhookDelivery(del.event, "failure")
	}

	if del.attempt < len(d.retryDelays) {
		retry := *del
		retry.due = now.Add(d.retryDelays[del.attempt])
		retry.attempt = del.attempt + 1
		d.schedule(&retry)
	}
}

// deliver POSTs the signed payload. Any outcome other than a 2xx response
// is a failure.
func (d *Dispatcher) deliver(ctx context.Context, sub *types.WebhookSubscription, del *delivery) error {
	secret, err := d.secrets.Decrypt(sub.EncryptedSecret)
	if err != nil {
		return fmt.Errorf("unable to decrypt subscription secret: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(del.payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(del.payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventType, del.event)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(d.clock.Now().Unix(), 10))
	req.Header.Set(HeaderSignature, "sha256="+signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
