// Package events publishes a record of every committed token movement in
// the NEP-297 envelope ("EVENT_JSON:" followed by a JSON object).
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ftledger/internal/ledger"
)

const (
	Standard = "nep141"
	Version  = "1.0.0"

	KindTransfer = "ft_transfer"
	KindMint     = "ft_mint"

	logPrefix = "EVENT_JSON:"
)

// Event is one emitted record. Data is a list so several movements of the
// same kind can share an envelope.
type Event struct {
	Standard string `json:"standard"`
	Version  string `json:"version"`
	Event    string `json:"event"`
	Data     any    `json:"data"`
}

// TransferData describes a movement between two accounts. Reward payouts
// are transfers whose memo carries the feat.
type TransferData struct {
	OldOwnerID string        `json:"old_owner_id"`
	NewOwnerID string        `json:"new_owner_id"`
	Amount     ledger.Amount `json:"amount"`
	Memo       string        `json:"memo,omitempty"`
}

// MintData describes newly created tokens.
type MintData struct {
	OwnerID string        `json:"owner_id"`
	Amount  ledger.Amount `json:"amount"`
	Memo    string        `json:"memo,omitempty"`
}

// Transfer builds an ft_transfer event.
func Transfer(from, to string, amount ledger.Amount, memo string) Event {
	return Event{
		Standard: Standard,
		Version:  Version,
		Event:    KindTransfer,
		Data:     []TransferData{{OldOwnerID: from, NewOwnerID: to, Amount: amount, Memo: memo}},
	}
}

// Mint builds an ft_mint event.
func Mint(owner string, amount ledger.Amount, memo string) Event {
	return Event{
		Standard: Standard,
		Version:  Version,
		Event:    KindMint,
		Data:     []MintData{{OwnerID: owner, Amount: amount, Memo: memo}},
	}
}

// JSON returns the event body without the log prefix.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// String renders the log line form of the event.
func (e Event) String() string {
	payload, err := e.JSON()
	if err != nil {
		return logPrefix + "{}"
	}
	return logPrefix + string(payload)
}

// Emitter delivers events to downstream systems. Emission happens after the
// ledger commit; an error never undoes the movement.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }

// LogEmitter writes events to the structured logger.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter constructs a logging emitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit writes the event line at info level.
func (e *LogEmitter) Emit(ctx context.Context, event Event) error {
	if e == nil || e.logger == nil {
		return nil
	}
	e.logger.InfoContext(ctx, event.String(), slog.String("event", event.Event))
	return nil
}

// RedisEmitter publishes the JSON body of each event on a Redis channel.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

// NewRedisEmitter constructs a publisher for channel.
func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	return &RedisEmitter{client: client, channel: channel}
}

func (e *RedisEmitter) Emit(ctx context.Context, event Event) error {
	payload, err := event.JSON()
	if err != nil {
		return err
	}
	return e.client.Publish(ctx, e.channel, payload).Err()
}

// Multi fans an event out to every emitter and joins their errors.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, emitter := range m {
		if err := emitter.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
