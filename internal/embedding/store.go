package embedding

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// Reference is one identity's stored reference image, used to rebuild
// the store when no snapshot survives a restart.
type Reference struct {
	Label int64
	Image []byte
}

// Store mantém o mapeamento label -> embeddings em memória, com um
// snapshot durável em disco. O ledger é a fonte de verdade; o store é
// um cache derivado e totalmente reconstruível.
type Store struct {
	mu      sync.RWMutex
	path    string
	labels  []int64
	vectors [][]float64
	logger  *slog.Logger
}

// snapshot is the on-disk gob layout.
type snapshot struct {
	Labels  []int64
	Vectors [][]float64
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With("component", "embedding_store"),
	}
}

// Append adds one embedding for label. Prior embeddings for the same
// label are never overwritten.
func (s *Store) Append(label int64, vector []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.labels = append(s.labels, label)
	s.vectors = append(s.vectors, vector)
}

// Remove drops every embedding stored under label and returns how many
// were dropped. Used for enrollment rollback and identity deletion.
func (s *Store) Remove(label int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels := s.labels[:0]
	vectors := s.vectors[:0]
	removed := 0
	for i, l := range s.labels {
		if l == label {
			removed++
			continue
		}
		labels = append(labels, l)
		vectors = append(vectors, s.vectors[i])
	}
	s.labels = labels
	s.vectors = vectors
	return removed
}

// Count returns the number of stored embeddings.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels)
}

// DistinctLabels returns how many distinct labels the store holds.
func (s *Store) DistinctLabels() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{}, len(s.labels))
	for _, l := range s.labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// TrainingSet returns copies of the (vectors, labels) pair for
// training. When valid is non-nil, embeddings whose label is not in
// valid are pruned: stale labels from deleted identities are tolerated
// at read time but excluded from future training inputs.
func (s *Store) TrainingSet(valid map[int64]struct{}) ([][]float64, []int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vectors := make([][]float64, 0, len(s.vectors))
	labels := make([]int64, 0, len(s.labels))
	for i, l := range s.labels {
		if valid != nil {
			if _, ok := valid[l]; !ok {
				continue
			}
		}
		vectors = append(vectors, s.vectors[i])
		labels = append(labels, l)
	}
	return vectors, labels
}

// Persist atomically writes the full collection to disk, replacing any
// prior snapshot. A partially-written file is never visible: the data
// goes to a temp file first and is renamed over the old snapshot.
func (s *Store) Persist() error {
	s.mu.RLock()
	snap := snapshot{
		Labels:  append([]int64(nil), s.labels...),
		Vectors: append([][]float64(nil), s.vectors...),
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "embeddings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load restores the snapshot from disk if one exists. Otherwise it
// rebuilds the store by re-encoding each identity's reference image
// through the provider; a failure to encode any single reference is
// logged and that identity skipped, never fatal to the whole load.
func (s *Store) Load(ctx context.Context, refs []Reference, prov provider.FaceProvider) error {
	f, err := os.Open(s.path)
	if err == nil {
		defer func() { _ = f.Close() }()

		var snap snapshot
		if err := gob.NewDecoder(f).Decode(&snap); err != nil {
			return fmt.Errorf("decode snapshot %s: %w", s.path, err)
		}
		if len(snap.Labels) != len(snap.Vectors) {
			return fmt.Errorf("corrupt snapshot %s: %d labels for %d vectors", s.path, len(snap.Labels), len(snap.Vectors))
		}

		s.mu.Lock()
		s.labels = snap.Labels
		s.vectors = snap.Vectors
		s.mu.Unlock()
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("open snapshot %s: %w", s.path, err)
	}

	if len(refs) == 0 {
		return nil
	}

	s.logger.Info("no embedding snapshot found, rebuilding from ledger",
		slog.Int("identities", len(refs)),
	)
	for _, ref := range refs {
		vector, err := encodeReference(ctx, prov, ref.Image)
		if err != nil {
			s.logger.Warn("skipping identity during rebuild",
				slog.Int64("label", ref.Label),
				slog.Any("error", err),
			)
			continue
		}
		s.Append(ref.Label, vector)
	}

	if s.Count() > 0 {
		return s.Persist()
	}
	return nil
}

// encodeReference runs the locate → crop → encode path on a stored
// reference image. Reference blobs are face crops already, but older
// rows may hold full frames, so detection is attempted first.
func encodeReference(ctx context.Context, prov provider.FaceProvider, image []byte) ([]float64, error) {
	faces, err := prov.LocateFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}

	face := image
	if len(faces) > 0 {
		face, err = prov.CropFace(image, faces[0].BoundingBox)
		if err != nil {
			return nil, fmt.Errorf("crop: %w", err)
		}
	}

	vector, err := prov.EncodeFace(ctx, face)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return vector, nil
}
