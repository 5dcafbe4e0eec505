package repository

import (
	"context"

	"FinInfluence/internal/domain/models"
	domrepo "FinInfluence/internal/domain/repository"
)

// messagePublisher is satisfied by *pkg/kafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// ResultMessage is one analysis on the result topic.
type ResultMessage struct {
	RequestID string `json:"request_id,omitempty"`
	Key       string `json:"key"`
	models.AnalysisResponse
}

// KafkaResultPublisher writes analysis results to a topic keyed by the cache
// key, so repeated analyses of one snapshot set stay on one partition.
type KafkaResultPublisher struct {
	producer messagePublisher
	topic    string
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

func NewKafkaResultPublisher(producer messagePublisher, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, res *models.AnalysisResult) error {
	msg := ResultMessage{
		RequestID:        domrepo.RequestIDFromContext(ctx),
		Key:              res.Key,
		AnalysisResponse: res.Response(),
	}
	return p.producer.Publish(ctx, p.topic, []byte(res.Key), msg)
}

func (p *KafkaResultPublisher) Close() error {
	return p.producer.Close()
}
