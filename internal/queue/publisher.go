package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/mahirjain10/quicksvg/internal/utils"
)

const (
	DefaultExchange = "image_processing"
	statusKey       = "status"
	publishTimeout  = 5 * time.Second
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// StatusPublisher announces UPLOADED and CONVERTED transitions on the status routing key.
type StatusPublisher struct {
	ch       channel
	exchange string
	logger   *observability.Logger
}

func newStatusPublisher(ch channel, exchange string, logger *observability.Logger) *StatusPublisher {
	return &StatusPublisher{ch: ch, exchange: exchange, logger: logger.WithComponent("queue")}
}

// NewStatusPublisher opens a channel on conn and declares the exchange.
func NewStatusPublisher(conn *amqp.Connection, exchange string, logger *observability.Logger) (*StatusPublisher, error) {
	ch, err := NewChannel(conn)
	if err != nil {
		return nil, err
	}
	if err := DeclareExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, err
	}
	return newStatusPublisher(ch, exchange, logger), nil
}

func (p *StatusPublisher) RecordUpload(ctx context.Context, file *types.StoredFile) error {
	return p.publish(ctx, utils.InitStatusMessage(utils.InitStatusData(file.FileName, file.OriginalName, types.UPLOADED)))
}

func (p *StatusPublisher) MarkConverted(ctx context.Context, fileName string) error {
	return p.publish(ctx, utils.InitStatusMessage(utils.InitStatusData(fileName, "", types.CONVERTED)))
}

func (p *StatusPublisher) publish(ctx context.Context, message *types.StatusMessage) error {
	if p.ch == nil {
		return errors.New("status channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	body, err := utils.SerializeJSON(message)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		statusKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.logger.Debug().Str("file_name", message.Data.FileName).Str("status", message.Data.Status).Msg("pushed to status exchange")
	return nil
}

func (p *StatusPublisher) Close() error {
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}
