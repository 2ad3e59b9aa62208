package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/saturnino-fabrica-de-software/facegate/internal/classifier"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/embedding"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// RecognitionService owns the embedding store and the fitted
// classifier behind a single lock boundary. Enrollments mutate through
// the write side; recognition reads a consistent, fully-trained
// snapshot through the read side. The in-memory classifier reference
// is only swapped after Fit and Save both succeed, so a concurrent
// reader never observes a half-trained model.
type RecognitionService struct {
	mu        sync.RWMutex
	store     *embedding.Store
	clf       *classifier.Softmax
	modelPath string
	provider  provider.FaceProvider
	logger    *slog.Logger
}

func NewRecognitionService(store *embedding.Store, modelPath string, faceProvider provider.FaceProvider, logger *slog.Logger) *RecognitionService {
	return &RecognitionService{
		store:     store,
		clf:       classifier.NewSoftmax(modelPath),
		modelPath: modelPath,
		provider:  faceProvider,
		logger:    logger.With("component", "recognition"),
	}
}

// Bootstrap restores durable state on process start: the embedding
// snapshot (or a rebuild from ledger reference images) and the fitted
// classifier, if either survives on disk.
func (s *RecognitionService) Bootstrap(ctx context.Context, refs []embedding.Reference) error {
	if err := s.store.Load(ctx, refs, s.provider); err != nil {
		return fmt.Errorf("load embedding store: %w", err)
	}
	if err := s.clf.Load(); err != nil {
		return fmt.Errorf("load classifier: %w", err)
	}

	s.logger.Info("recognition state restored",
		slog.Int("embeddings", s.store.Count()),
		slog.Int("labels", s.store.DistinctLabels()),
		slog.Bool("trained", s.clf.Trained()),
	)
	return nil
}

// Trained reports whether recognition is currently operational.
func (s *RecognitionService) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clf.Trained()
}

// AppendAndTrain appends an identity's embeddings, persists the store
// snapshot, and retrains the classifier when at least two distinct
// labels exist. Fewer than two labels skips training without error:
// the system simply is not yet operational for recognition. validIDs
// is the ledger's current identity set; embeddings whose label fell
// out of it are pruned from the training input.
func (s *RecognitionService) AppendAndTrain(ctx context.Context, label int64, vectors [][]float64, validIDs []int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range vectors {
		s.store.Append(label, v)
	}
	if err := s.store.Persist(); err != nil {
		return false, fmt.Errorf("persist embedding store: %w", err)
	}

	if s.store.DistinctLabels() < 2 {
		s.logger.Info("skipping training, single label enrolled", slog.Int64("label", label))
		return false, nil
	}

	valid := make(map[int64]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}
	trainVectors, trainLabels := s.store.TrainingSet(valid)

	fresh := classifier.NewSoftmax(s.modelPath)
	if err := fresh.Fit(trainVectors, trainLabels); err != nil {
		if errors.Is(err, classifier.ErrInsufficientData) {
			return false, domain.ErrInsufficientData.WithError(err)
		}
		return false, fmt.Errorf("fit classifier: %w", err)
	}
	if err := fresh.Save(); err != nil {
		return false, fmt.Errorf("save classifier: %w", err)
	}

	// Both fit and save succeeded; swap the live reference.
	s.clf = fresh

	s.logger.Info("classifier retrained",
		slog.Int("samples", len(trainVectors)),
		slog.Int("labels", s.store.DistinctLabels()),
	)
	return true, nil
}

// Remove drops an identity's embeddings and persists the shrunken
// snapshot. The fitted classifier is left as-is: stale labels are
// tolerated at prediction time and pruned on the next retrain.
func (s *RecognitionService) Remove(label int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Remove(label) == 0 {
		return nil
	}
	if err := s.store.Persist(); err != nil {
		return fmt.Errorf("persist embedding store: %w", err)
	}
	return nil
}

// Recognize classifies one embedding and returns the predicted
// identity label with its probability.
func (s *RecognitionService) Recognize(vector []float64) (int64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	label, probability, err := s.clf.PredictWithConfidence(vector)
	if errors.Is(err, classifier.ErrUntrained) {
		return 0, 0, domain.ErrClassifierUnavailable
	}
	if err != nil {
		return 0, 0, domain.ErrInternal.WithError(err)
	}
	return label, probability, nil
}
