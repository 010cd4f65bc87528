package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/realtime"
	"gorm.io/gorm"
)

// ErrUnknownRecipient is returned when the event names a recipient that
// does not exist.
var ErrUnknownRecipient = errors.New("unknown recipient")

// DefaultSendTimeout bounds one channel sender attempt; an overrun counts
// as a transient failure.
const DefaultSendTimeout = 10 * time.Second

// Event is what collaborators submit when a domain occurrence (appointment
// booked, critical lab result, payment due...) should notify someone.
type Event struct {
	TypeName    string                 `json:"type_name" binding:"required"`
	RecipientID uint                   `json:"recipient_id" binding:"required"`
	Title       string                 `json:"title" binding:"required"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data"`
	Priority    string                 `json:"priority"`
}

// Dispatcher turns one event into one delivery record per enabled channel
// and drives each record through its channel sender. Channels are
// independent units of work: a failure in one never blocks or rolls back
// its siblings.
type Dispatcher struct {
	store    *NotificationStore
	registry *TypeRegistry
	resolver *PreferenceResolver
	renderer *TemplateRenderer
	hub      *realtime.Hub

	mu      sync.RWMutex
	senders map[string]ChannelSender

	SendTimeout time.Duration
	wg          sync.WaitGroup
}

// NewDispatcher wires the engine components over one DB handle and
// registers the default channel senders.
func NewDispatcher(db *gorm.DB, hub *realtime.Hub) *Dispatcher {
	d := &Dispatcher{
		store:       NewNotificationStore(db),
		registry:    NewTypeRegistry(db),
		resolver:    NewPreferenceResolver(db),
		renderer:    NewTemplateRenderer(db),
		hub:         hub,
		senders:     make(map[string]ChannelSender),
		SendTimeout: DefaultSendTimeout,
	}
	d.RegisterSender(NewEmailSender())
	d.RegisterSender(NewSMSSender())
	d.RegisterSender(NewPushSender())
	d.RegisterSender(NewInAppSender(hub))
	d.RegisterSender(NewWebsocketSender(hub))
	return d
}

// Store exposes the delivery record store shared with controllers
func (d *Dispatcher) Store() *NotificationStore { return d.store }

// Registry exposes the type catalog shared with controllers
func (d *Dispatcher) Registry() *TypeRegistry { return d.registry }

// RegisterSender installs (or replaces) the sender for one channel
func (d *Dispatcher) RegisterSender(s ChannelSender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders[s.Channel()] = s
}

func (d *Dispatcher) sender(channel string) (ChannelSender, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.senders[channel]
	return s, ok
}

// Dispatch resolves the recipient's enabled channels, renders content and
// creates one PENDING record per channel, then launches the send attempts
// concurrently. It returns the public ids of the created records. A render
// failure skips only its own channel and is reported in the joined error
// alongside any ids that were still created.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event, audit AuditContext) ([]string, error) {
	ntype, err := d.registry.Resolve(ev.TypeName)
	if err != nil {
		return nil, err
	}

	var recipient models.User
	if err := d.store.DB.First(&recipient, ev.RecipientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownRecipient
		}
		return nil, err
	}

	priority := ntype.Priority
	if ev.Priority != "" && models.ValidPriority(ev.Priority) {
		priority = ev.Priority
	}

	channels := d.resolver.Resolve(ev.RecipientID, ntype, priority, time.Now())
	if len(channels) == 0 {
		// Valid outcome: quiet hours or fully disabled preferences
		logInfo("Event %q for user %d resolved zero channels", ev.TypeName, ev.RecipientID)
		return []string{}, nil
	}

	dataJSON := "{}"
	if ev.Data != nil {
		if raw, err := json.Marshal(ev.Data); err == nil {
			dataJSON = string(raw)
		}
	}

	ids := make([]string, 0, len(channels))
	created := make([]*models.Notification, 0, len(channels))
	var renderErrs []error

	for _, channel := range channels {
		content, err := d.renderer.Render(ntype, channel, ev)
		if err != nil {
			// No record is persisted for a channel that cannot render
			logWarn("Render failed for %s/%s: %v", ev.TypeName, channel, err)
			renderErrs = append(renderErrs, err)
			continue
		}

		n := &models.Notification{
			NotificationTypeID: ntype.ID,
			TypeName:           ntype.Name,
			Priority:           priority,
			RecipientID:        ev.RecipientID,
			Title:              content.Subject,
			Message:            content.Body,
			Data:               dataJSON,
			Channel:            channel,
		}
		if err := d.store.Create(n, audit); err != nil {
			logWarn("Error creating %s record for event %q: %v", channel, ev.TypeName, err)
			renderErrs = append(renderErrs, err)
			continue
		}
		ids = append(ids, n.NotificationID)
		created = append(created, n)
	}

	// Send attempts run detached from the caller's context: a channel in
	// flight is never cancelled because the caller or a sibling gave up.
	sendCtx := context.WithoutCancel(ctx)
	for _, n := range created {
		d.wg.Add(1)
		go func(n *models.Notification) {
			defer d.wg.Done()
			d.sendOne(sendCtx, n, audit)
		}(n)
	}

	return ids, errors.Join(renderErrs...)
}

// Resend pushes one already-claimed record through its sender synchronously.
// Used by the retry scheduler.
func (d *Dispatcher) Resend(ctx context.Context, n *models.Notification, audit AuditContext) {
	d.sendOne(ctx, n, audit)
}

// Wait blocks until all in-flight send attempts finish. Used by tests and
// graceful shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// sendOne performs one bounded send attempt and applies the resulting state
// transition. A missing sender leaves the record untouched so a later pass
// can pick it up once the sender is available.
func (d *Dispatcher) sendOne(ctx context.Context, n *models.Notification, audit AuditContext) {
	sender, ok := d.sender(n.Channel)
	if !ok {
		logWarn("No sender registered for channel %s (notification %s)", n.Channel, n.NotificationID)
		return
	}

	outcome := d.attempt(ctx, sender, n)

	switch outcome.Result {
	case SendSent:
		if err := d.store.MarkSent(n.ID, audit); err != nil {
			logWarn("Error marking %s sent: %v", n.NotificationID, err)
			return
		}
		if models.ChannelAutoDelivers(n.Channel) {
			if err := d.store.MarkDelivered(n.ID, audit); err != nil {
				logWarn("Error marking %s delivered: %v", n.NotificationID, err)
				return
			}
			// The live push belongs to the WEBSOCKET record; the IN_APP
			// sibling is the persisted inbox side of the same event.
			if n.Channel == models.ChannelWebsocket {
				d.pushLive(n.ID, n.RecipientID)
			}
		}
	case SendTransientFailure:
		if err := d.store.MarkFailed(n.ID, outcome.Reason, false, audit); err != nil {
			logWarn("Error recording transient failure for %s: %v", n.NotificationID, err)
		}
	case SendPermanentFailure:
		if err := d.store.MarkFailed(n.ID, outcome.Reason, true, audit); err != nil {
			logWarn("Error recording permanent failure for %s: %v", n.NotificationID, err)
		}
	}
}

// attempt bounds one sender call with the dispatch timeout
func (d *Dispatcher) attempt(ctx context.Context, sender ChannelSender, n *models.Notification) SendOutcome {
	ctx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()

	done := make(chan SendOutcome, 1)
	go func() {
		done <- sender.AttemptSend(ctx, n)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-ctx.Done():
		return TransientFailure("send attempt timed out")
	}
}

// pushLive pushes the delivered record to the recipient's open sessions.
// Zero open sessions is a no-op; the record stays visible on next poll.
func (d *Dispatcher) pushLive(id, recipientID uint) {
	if d.hub == nil {
		return
	}
	fresh, err := d.store.Get(id)
	if err != nil {
		logWarn("Error loading notification %d for live push: %v", id, err)
		return
	}
	reached := d.hub.Push(recipientID, realtime.NotificationFrame(fresh))
	logInfo("Pushed notification %s to %d live session(s) of user %d", fresh.NotificationID, reached, recipientID)
}
