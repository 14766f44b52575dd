package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"bid-eval-go/internal/config"
	"bid-eval-go/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EvaluationCompletedEvent 评估完成事件的消息体
type EvaluationCompletedEvent struct {
	RunID     string  `json:"run_id"`
	TaskName  string  `json:"task_name"`
	Matched   int     `json:"matched"`
	Coverage  float64 `json:"coverage"`
	Recall    float64 `json:"recall"`
	Timestamp string  `json:"timestamp"`
}

// RabbitMQ 提供评估事件的消息队列发布
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	exchangeMap map[string]bool
	exchangeMu  sync.Mutex
	cfg         *config.RabbitMQConfig
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器 (%s): %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		cfg:         cfg,
	}

	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, chErr := conn.Channel()
			if chErr != nil {
				logger.Error().Err(chErr).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	logger.Info().Str("url", cfg.URL).Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// getChannel 获取可用通道
func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("创建新RabbitMQ通道失败")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

// putChannel 归还通道到池
func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}

	r.exchangeMu.Lock()
	if r.exchangeMap[exchangeName] {
		r.exchangeMu.Unlock()
		return nil
	}
	r.exchangeMu.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	err := ch.ExchangeDeclare(
		exchangeName,
		exchangeType,
		durable,
		false, // 自动删除
		false, // 内部专用
		false, // 非阻塞
		nil,
	)
	if err != nil {
		return fmt.Errorf("声明交换机 %s 失败: %w", exchangeName, err)
	}

	r.exchangeMu.Lock()
	r.exchangeMap[exchangeName] = true
	r.exchangeMu.Unlock()
	return nil
}

// PublishJSON 发布JSON格式消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: deliveryMode,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("发布消息到 %s/%s 失败: %w", exchangeName, routingKey, err)
	}
	return nil
}

// PublishEvaluationCompleted 发布评估完成事件
func (r *RabbitMQ) PublishEvaluationCompleted(ctx context.Context, event EvaluationCompletedEvent) error {
	exchange := r.cfg.EvaluationExchange
	routingKey := r.cfg.CompletedRoutingKey
	if exchange == "" || routingKey == "" {
		return fmt.Errorf("评估事件的exchange或routing key未配置")
	}

	if err := r.EnsureExchange(exchange, "topic", true); err != nil {
		return err
	}

	if err := r.PublishJSON(ctx, exchange, routingKey, event, true); err != nil {
		return err
	}

	logger.Info().
		Str("run_id", event.RunID).
		Str("task", event.TaskName).
		Msg("评估完成事件已发布")
	return nil
}
