package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/Shopify/sarama"

	"github.com/gmorph/gmorph/gmorph"
)

// KafkaMaxMessageSize is the max message size in bytes for a Kafka message.
const KafkaMaxMessageSize = 980 << 10

// KafkaConfig describes kafka servers and the topic receiving results.
type KafkaConfig struct {
	Servers    []string `toml:"servers"`
	Topic      string   `toml:"topic"`
	BufferSize int      `toml:"buffer_size"`
}

// KafkaPublisher streams results to a kafka topic as JSON messages keyed by
// send time.
type KafkaPublisher struct {
	topic    string
	producer sarama.AsyncProducer
}

// NewKafkaPublisher connects a producer for the configured servers.
func NewKafkaPublisher(kc KafkaConfig) (*KafkaPublisher, error) {
	if len(kc.Servers) == 0 {
		return nil, fmt.Errorf("kafka publishing needs at least one server")
	}
	topic := kc.Topic
	if topic == "" {
		topic = "gmorph-results"
	}
	reg, err := regexp.Compile(`[^a-zA-Z0-9\._\-]+`)
	if err != nil {
		return nil, err
	}
	topic = reg.ReplaceAllString(topic, "-")

	config := sarama.NewConfig()
	config.Producer.MaxMessageBytes = KafkaMaxMessageSize
	if kc.BufferSize > 0 {
		config.ChannelBufferSize = kc.BufferSize
	}
	producer, err := sarama.NewAsyncProducer(kc.Servers, config)
	if err != nil {
		return nil, err
	}

	go func() {
		for err := range producer.Errors() {
			gmorph.Errorf("error on kafka send: %v\n", err)
		}
	}()

	gmorph.Infof("Kafka topic for results: %s\n", topic)
	return &KafkaPublisher{topic: topic, producer: producer}, nil
}

// Publish sends one result.  Delivery is asynchronous; failures surface in
// the error drain, not here.
func (p *KafkaPublisher) Publish(res Result) error {
	jsonmsg, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("unable to marshal result for kafka: %v", err)
	}
	timeKey := sarama.StringEncoder(strconv.FormatInt(time.Now().UnixNano(), 10))
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(jsonmsg),
		Key:   timeKey,
	}
	return nil
}

// Close flushes the kafka queue before stopping.
func (p *KafkaPublisher) Close() {
	if p == nil || p.producer == nil {
		return
	}
	if err := p.producer.Close(); err != nil {
		gmorph.Errorf("Kafka producer had error on close: %v\n", err)
	} else {
		gmorph.Infof("Successfully shut down kafka producer.\n")
	}
}
