package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexiguazio/mask-detection/internal/detector"
	"github.com/alexiguazio/mask-detection/internal/logging"
	"github.com/alexiguazio/mask-detection/internal/repository"
)

// PredictionRepository defines the persistence operations needed by the use case.
type PredictionRepository interface {
	SaveLog(ctx context.Context, log *repository.PredictionLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.PredictionLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// PredictionUseCase drives one request through the adapter hook sequence and
// records the outcome. Caching and persistence observe the request path:
// when they degrade the inference result is still returned; only failures of
// the hooks themselves fail the request.
type PredictionUseCase struct {
	det            detector.Detector
	repo           PredictionRepository
	cache          Cache
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type cachedPrediction struct {
	RequestID       string    `json:"request_id"`
	BatchSize       int       `json:"batch_size"`
	MaskProbability float32   `json:"mask_probability"`
	Hash            string    `json:"sha1_hash"`
	LatencyMillis   int64     `json:"latency_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewPredictionUseCase constructs a new use case instance. Repo and cache may
// be nil when the corresponding backend is not configured.
func NewPredictionUseCase(det detector.Detector, repo PredictionRepository, cache Cache, logger *zap.Logger) *PredictionUseCase {
	return &PredictionUseCase{
		det:            det,
		repo:           repo,
		cache:          cache,
		logger:         logger.Named("prediction_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Run executes preprocess -> predict -> postprocess in strict sequence, then
// caches and persists the outcome best-effort.
func (uc *PredictionUseCase) Run(ctx context.Context, req *detector.PredictRequest) (string, *detector.PredictResponse, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.predict", requestID)
	start := time.Now()

	batch, err := uc.det.Preprocess(ctx, req)
	if err != nil {
		opLogger.Error("preprocess failed", zap.Error(err))
		return requestID, nil, err
	}

	scores, err := uc.det.Predict(ctx, batch)
	if err != nil {
		opLogger.Error("predict failed", zap.Error(err), zap.Int("batch_size", batch.N))
		return requestID, nil, err
	}

	resp, err := uc.det.Postprocess(scores)
	if err != nil {
		opLogger.Error("postprocess failed", zap.Error(err))
		return requestID, nil, err
	}

	latency := time.Since(start)
	hash := requestHash(req)
	opLogger.Info("prediction served",
		zap.Int("batch_size", batch.N),
		zap.Float32("mask_probability", resp.MaskProbability),
		zap.Duration("latency", latency))

	log := &repository.PredictionLog{
		RequestID:       requestID,
		BatchSize:       batch.N,
		MaskProbability: resp.MaskProbability,
		SHA1Hash:        hash,
		LatencyMillis:   latency.Milliseconds(),
		CreatedAt:       time.Now().UTC(),
	}
	uc.recordOutcome(ctx, opLogger, requestID, log)

	return requestID, resp, nil
}

// GetResult retrieves a cached prediction outcome or loads it from persistence.
func (uc *PredictionUseCase) GetResult(ctx context.Context, requestID string) (*repository.PredictionLog, error) {
	cacheKey := predictionCacheKey(requestID)
	if uc.cache != nil {
		if cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey); err == nil {
			var payload cachedPrediction
			if err := json.Unmarshal([]byte(cached), &payload); err != nil {
				logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
			} else {
				return &repository.PredictionLog{
					RequestID:       requestID,
					BatchSize:       payload.BatchSize,
					MaskProbability: payload.MaskProbability,
					SHA1Hash:        payload.Hash,
					LatencyMillis:   payload.LatencyMillis,
					CreatedAt:       payload.CreatedAt,
				}, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to read cache", zap.Error(err))
		}
	}

	if uc.repo == nil {
		return nil, fmt.Errorf("result %s not found", requestID)
	}
	return uc.repo.FindByRequestID(ctx, requestID)
}

// recordOutcome writes the outcome to cache and persistence. Both backends are
// optional and both degrade with a log instead of failing the request.
func (uc *PredictionUseCase) recordOutcome(ctx context.Context, opLogger *zap.Logger, requestID string, log *repository.PredictionLog) {
	if uc.cache != nil {
		cached := cachedPrediction{
			RequestID:       log.RequestID,
			BatchSize:       log.BatchSize,
			MaskProbability: log.MaskProbability,
			Hash:            log.SHA1Hash,
			LatencyMillis:   log.LatencyMillis,
			CreatedAt:       log.CreatedAt,
		}
		if serialized, err := json.Marshal(cached); err != nil {
			opLogger.Warn("failed to serialize prediction for cache", zap.Error(err))
		} else if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
			return uc.cache.Set(ctx, predictionCacheKey(requestID), string(serialized), 5*time.Minute)
		}); err != nil {
			opLogger.Warn("failed to cache prediction result", zap.Error(err))
		}
	}

	if uc.repo != nil {
		if err := uc.repo.SaveLog(ctx, log); err != nil {
			opLogger.Warn("failed to persist prediction log", zap.Error(err))
		}
	}
}

func (uc *PredictionUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *PredictionUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func predictionCacheKey(requestID string) string {
	return fmt.Sprintf("prediction:%s", requestID)
}

// requestHash fingerprints the incoming batch so duplicate submissions can be
// spotted in the audit log.
func requestHash(req *detector.PredictRequest) string {
	digest := sha1.New()
	for _, instance := range req.Instances {
		digest.Write([]byte(instance))
	}
	return hex.EncodeToString(digest.Sum(nil))
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
