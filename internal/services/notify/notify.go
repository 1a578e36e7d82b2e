package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"
)

// ActionDumpPriceHistory asks the receiver to regenerate the price history
// charts of the listed events.
const ActionDumpPriceHistory = "dump_price_history"

type Notification struct {
	Action   string  `json:"action"`
	EventIDs []int64 `json:"event_ids"`
}

func NewPriceHistoryNotification(eventIDs []int64) Notification {
	return Notification{Action: ActionDumpPriceHistory, EventIDs: eventIDs}
}

type Config struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string

	// Origin overrides the PubNub host, Secure selects https.
	Origin string
	Secure bool
}

func newPubNub(cfg Config) *pubnub.PubNub {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey
	if cfg.Origin != "" {
		pnCfg.Origin = cfg.Origin
		pnCfg.Secure = cfg.Secure
	}
	return pubnub.NewPubNub(pnCfg)
}

// Publisher sends notifications to a PubNub channel.
type Publisher struct {
	pn *pubnub.PubNub
}

func NewPublisher(cfg Config) *Publisher {
	return &Publisher{pn: newPubNub(cfg)}
}

func (p *Publisher) Publish(ctx context.Context, topic string, n Notification) error {
	_, st, err := p.pn.PublishWithContext(ctx).
		Channel(topic).
		Message(n).
		Execute()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	if st.StatusCode != 200 {
		return fmt.Errorf("publish to %s: status %d", topic, st.StatusCode)
	}
	return nil
}

// Handler processes one raw message payload.
type Handler func(ctx context.Context, payload []byte) error

// Subscriber listens on one channel and hands every message to a Handler.
type Subscriber struct {
	pn       *pubnub.PubNub
	listener *pubnub.Listener
	channel  string
	handler  Handler
}

func NewSubscriber(cfg Config, channel string, handler Handler) *Subscriber {
	return &Subscriber{
		pn:       newPubNub(cfg),
		listener: pubnub.NewListener(),
		channel:  channel,
		handler:  handler,
	}
}

// Run subscribes and processes messages until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	s.pn.AddListener(s.listener)
	s.pn.Subscribe().Channels([]string{s.channel}).Execute()
	defer func() {
		s.pn.Unsubscribe().Channels([]string{s.channel}).Execute()
		s.pn.RemoveListener(s.listener)
	}()

	for {
		select {
		case status := <-s.listener.Status:
			switch status.Category {
			case pubnub.PNConnectedCategory:
				slog.Info("connected to pubnub", "channel", s.channel)
			case pubnub.PNReconnectedCategory:
				slog.Info("reconnected to pubnub", "channel", s.channel)
			case pubnub.PNDisconnectedCategory:
				slog.Warn("disconnected from pubnub", "channel", s.channel)
			case pubnub.PNAccessDeniedCategory:
				slog.Error("access denied by pubnub", "channel", s.channel)
			case pubnub.PNReconnectionAttemptsExhausted:
				return errors.New("pubnub reconnection attempts exhausted")
			default:
				slog.Debug("pubnub status", "category", status.Category.String())
			}

		case message := <-s.listener.Message:
			if err := s.dispatch(ctx, message.Message); err != nil {
				slog.Error("handle notification", "channel", s.channel, "error", err)
			}

		case <-ctx.Done():
			slog.Info("close subscribe", "channel", s.channel)
			return nil
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, message any) error {
	payload, err := messagePayload(message)
	if err != nil {
		return err
	}
	return s.handler(ctx, payload)
}

// messagePayload turns a received message back into JSON. Publishers may
// send a JSON object or a JSON encoded string.
func messagePayload(message any) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	case nil:
		return nil, errors.New("empty message")
	default:
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode message: %w", err)
		}
		return payload, nil
	}
}
