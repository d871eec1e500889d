package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
)

var (
	errPublisherClosed = errors.New("rabbitmq: publisher is closed")
	errNotConnected    = errors.New("rabbitmq: not connected")
)

// channel: подмножество *amqp.Channel, используемое издателем.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialer открывает соединение и канал с объявленным exchange.
type dialer func() (channel, io.Closer, error)

// Publisher отправляет зафиксированные доменные события в direct-exchange;
// ключ маршрутизации равен типу события (report.cleared, points.awarded, ...).
// После обрыва связи (amqp.ErrClosed) соединение переоткрывается при следующей отправке.
type Publisher struct {
	mu       sync.Mutex
	conn     io.Closer
	ch       channel
	dial     dialer
	exchange string
	closed   bool
}

func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	dial := dialAMQP(amqpURL, exchange)
	ch, conn, err := dial()
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, dial: dial, exchange: exchange}, nil
}

func dialAMQP(amqpURL, exchange string) dialer {
	return func() (channel, io.Closer, error) {
		conn, err := amqp.Dial(amqpURL)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq: failed to connect: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq: failed to open channel: %w", err)
		}

		err = ch.ExchangeDeclare(
			exchange, // name
			"direct", // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq: failed to declare exchange: %w", err)
		}
		return ch, conn, nil
	}
}

func newPublisherWithChannel(ch channel, exchange string, dial dialer) *Publisher {
	return &Publisher{ch: ch, dial: dial, exchange: exchange}
}

// Publish реализует repository.EventPublisher. Ошибки доставки только логируются.
func (p *Publisher) Publish(ctx context.Context, events ...entity.DomainEvent) {
	for _, ev := range events {
		if err := p.publishOne(ctx, ev); err != nil {
			logger.Log.WithError(err).WithFields(logrus.Fields{
				"type":    ev.Type,
				"user_id": ev.UserID,
			}).Error("rabbitmq: failed to publish event")
		}
	}
}

func (p *Publisher) publishOne(ctx context.Context, ev entity.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         string(ev.Type),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPublisherClosed
	}
	if p.ch == nil {
		if err := p.reconnectLocked(); err != nil {
			return err
		}
	}

	err = p.ch.Publish(p.exchange, string(ev.Type), false, false, msg)
	if !errors.Is(err, amqp.ErrClosed) || p.dial == nil {
		return err
	}

	logger.Log.WithField("exchange", p.exchange).Warn("rabbitmq: connection closed, reconnecting")
	if err := p.reconnectLocked(); err != nil {
		return err
	}
	return p.ch.Publish(p.exchange, string(ev.Type), false, false, msg)
}

// reconnectLocked вызывается под p.mu. При неудаче канал остаётся пустым,
// и следующая отправка попробует снова.
func (p *Publisher) reconnectLocked() error {
	if p.dial == nil {
		return errNotConnected
	}
	p.dropLocked()
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	p.ch, p.conn = ch, conn
	return nil
}

func (p *Publisher) dropLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true

	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}
