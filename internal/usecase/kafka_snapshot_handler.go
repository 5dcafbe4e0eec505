package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"FinInfluence/internal/domain/models"
	domrepo "FinInfluence/internal/domain/repository"
	pkgkafka "FinInfluence/pkg/kafka"
	applogger "FinInfluence/pkg/logger"
)

// Analyzer is what transports need from the analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, snaps models.SnapshotSet) (*models.AnalysisResult, error)
}

// KafkaSnapshotHandler serves analysis requests arriving on a topic. The
// result reaches the result topic through the analyzer's publisher.
type KafkaSnapshotHandler struct {
	topic    string
	analyzer Analyzer
	metrics  domrepo.Metrics
	logger   *applogger.Logger
}

func NewKafkaSnapshotHandler(topic string, analyzer Analyzer, metrics domrepo.Metrics, log *applogger.Logger) *KafkaSnapshotHandler {
	return &KafkaSnapshotHandler{topic: topic, analyzer: analyzer, metrics: metrics, logger: log}
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

// incoming message schema: {request_id?, stock_prices:{SYM:{price, changePercent}}}
func (h *KafkaSnapshotHandler) Handle(ctx context.Context, key, value []byte) error {
	var m struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(value, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(models.NewInputError("invalid JSON body: %v", err))
	}
	if m.RequestID == "" {
		m.RequestID = string(key)
	}

	snaps, err := ParseSnapshots(ctx, value)
	if err != nil {
		h.metrics.RecordError(models.KindOf(err))
		return pkgkafka.Permanent(err)
	}

	ctx = domrepo.ContextWithRequestID(ctx, m.RequestID)
	_, err = h.analyzer.Analyze(ctx, snaps)
	var ide *models.InsufficientDataError
	if errors.As(err, &ide) {
		// Same input, same table length; retrying cannot help.
		return pkgkafka.Permanent(err)
	}
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
