// internal/service/checkout/infrastructure/adapter/events_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"kasir/internal/pkg/mq"
	"kasir/internal/service/checkout/domain"
)

// CheckoutEventKafkaAdapter 结账事件的 Kafka 生产者。
// 以 CheckoutID 作为消息 Key，同一会话的事件落在同一分区保持有序。
type CheckoutEventKafkaAdapter struct {
	writer *kafka.Writer
}

func NewCheckoutEventKafkaAdapter(writer *kafka.Writer) *CheckoutEventKafkaAdapter {
	return &CheckoutEventKafkaAdapter{writer: writer}
}

func (a *CheckoutEventKafkaAdapter) Publish(ctx context.Context, event domain.CheckoutEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal checkout event")
	}
	if err := mq.ProduceMessage(ctx, a.writer, []byte(event.CheckoutID), payload); err != nil {
		return errors.Wrap(err, "produce checkout event")
	}
	return nil
}

// Close 关闭底层 writer。
func (a *CheckoutEventKafkaAdapter) Close() error {
	return a.writer.Close()
}
