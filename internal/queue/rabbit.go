package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/meditrack/reminder-service/internal/config"
)

type RabbitMqClient struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Config  config.RabbitMQConfig
}

func NewRabbitMqService(cfg config.RabbitMQConfig) (*RabbitMqClient, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	client := &RabbitMqClient{
		Conn:    conn,
		Channel: channel,
		Config:  cfg,
	}
	if err := client.SetUpExchangeAndQueue(); err != nil {
		client.CloseConnection()
		return nil, err
	}
	return client, nil
}

func (r *RabbitMqClient) CloseConnection() {
	r.Channel.Close()
	r.Conn.Close()
}

func (r *RabbitMqClient) IsConnected() bool {
	return r.Conn != nil && !r.Conn.IsClosed()
}

func (r *RabbitMqClient) SetUpExchangeAndQueue() error {
	if err := r.Channel.ExchangeDeclare(
		r.Config.Exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("error in declaring exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(
		r.Config.AlertQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("error declaring queue %s: %w", r.Config.AlertQueue, err)
	}
	if err := r.Channel.QueueBind(
		r.Config.AlertQueue,
		r.Config.AlertQueue,
		r.Config.Exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", r.Config.AlertQueue, err)
	}
	return nil
}

func (r *RabbitMqClient) Publish(ctx context.Context, routingKey string, message interface{}) error {
	by, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	err = r.Channel.PublishWithContext(
		ctx,
		r.Config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         by,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishAlert sends a message to the alerts queue consumed by connected
// clients.
func (r *RabbitMqClient) PublishAlert(ctx context.Context, message interface{}) error {
	return r.Publish(ctx, r.Config.AlertQueue, message)
}
