// Package databus publishes connection lifecycle events to kafka.
package databus

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/Shopify/sarama"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

const queueSize = 256

type Event interface {
	Serialize() []byte
	Topic() string
}

type DataBus struct {
	producer sarama.SyncProducer
	topic    string
	node     *snowflake.Node
	queue    chan Event
}

// Dial connects a sync producer to the comma separated brokers in host.
func Dial(host, topic string, nodeID int64) (*DataBus, error) {
	hosts := strings.Split(host, ",")
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	p, err := sarama.NewSyncProducer(hosts, conf)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}
	log.Info("Kafka producer initialized...")
	return New(p, topic, nodeID)
}

func New(producer sarama.SyncProducer, topic string, nodeID int64) (*DataBus, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrap(err, "create snowflake node")
	}
	return &DataBus{
		producer: producer,
		topic:    topic,
		node:     node,
		queue:    make(chan Event, queueSize),
	}, nil
}

func (db *DataBus) PublishRaw(topic string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	_, _, err := db.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(raw)})
	return errors.WrapAndReport(err, "produce message")
}

func (db *DataBus) Publish(e Event) error {
	return db.PublishRaw(e.Topic(), e.Serialize())
}

// enqueue hands e to the Start loop. Events are dropped when it falls behind.
func (db *DataBus) enqueue(e Event) {
	select {
	case db.queue <- e:
	default:
		log.Warnf("databus queue full, dropping %s", e.Serialize())
	}
}

// Start publishes queued events until ctx is done.
func (db *DataBus) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-db.queue:
				if err := db.Publish(e); err != nil {
					log.Error(err)
				}
			}
		}
	}()
}

func (db *DataBus) Close() error {
	return errors.Wrap(db.producer.Close(), "close kafka producer")
}
