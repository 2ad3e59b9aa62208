package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

var (
	errASCIIName = errors.New("name must contain only letters and spaces")
	errNoImages  = errors.New("at least one image is required")
)

// EnrollmentService orchestrates locate → encode → persist → retrain
// for new and updated identities. Enrollments are serialized by a
// single lock so two concurrent calls can never produce an embedding
// snapshot reflecting one enrollment's labels and a classifier trained
// on the other's.
type EnrollmentService struct {
	identityRepo   repository.IdentityRepositoryInterface
	permissionRepo repository.PermissionRepositoryInterface
	recognition    *RecognitionService
	provider       provider.FaceProvider
	auditLog       audit.Logger
	logger         *slog.Logger
	timeout        time.Duration

	mu sync.Mutex // global enrollment lock
}

func NewEnrollmentService(
	identityRepo repository.IdentityRepositoryInterface,
	permissionRepo repository.PermissionRepositoryInterface,
	recognition *RecognitionService,
	faceProvider provider.FaceProvider,
	auditLog audit.Logger,
	logger *slog.Logger,
	timeout time.Duration,
) *EnrollmentService {
	return &EnrollmentService{
		identityRepo:   identityRepo,
		permissionRepo: permissionRepo,
		recognition:    recognition,
		provider:       faceProvider,
		auditLog:       auditLog,
		logger:         logger.With("component", "enrollment"),
		timeout:        timeout,
	}
}

// Enroll registers a new identity from one or more images and a
// non-empty permission list. Validation happens before any side
// effect; any failure after the identity row exists rolls the row and
// its permissions back, so no orphan identity without embeddings
// survives a failed call.
func (s *EnrollmentService) Enroll(ctx context.Context, name string, images [][]byte, rawLevels []string) (*domain.EnrollmentResult, error) {
	if !domain.ValidName(name) {
		return nil, domain.ErrValidation.WithError(errASCIIName)
	}
	name = domain.FormatName(name)

	levels, err := domain.ParseLevels(rawLevels)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, domain.ErrValidation.WithError(errNoImages)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	crops, err := s.collectFaceCrops(ctx, images)
	if err != nil {
		return nil, err
	}
	if len(crops) == 0 {
		// No usable face anywhere, starting with the first image:
		// no identity is created.
		return nil, domain.ErrNoFaceDetected
	}

	vectors, err := s.encodeCrops(ctx, crops)
	if err != nil {
		return nil, domain.ErrEnrollmentFailed.WithError(err)
	}

	// First located face fixes the identity and its label.
	identity := &domain.Identity{
		Name:       name,
		FacialData: crops[0],
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		return nil, err
	}

	for _, level := range levels {
		if err := s.permissionRepo.Add(ctx, identity.ID, level); err != nil {
			return nil, s.rollback(ctx, identity.ID, err)
		}
	}

	validIDs, err := s.identityRepo.IDs(ctx)
	if err != nil {
		return nil, s.rollback(ctx, identity.ID, err)
	}

	trained, err := s.recognition.AppendAndTrain(ctx, identity.ID, vectors, validIDs)
	if err != nil {
		return nil, s.rollback(ctx, identity.ID, err)
	}

	s.logger.Info("identity enrolled",
		slog.Int64("identity_id", identity.ID),
		slog.String("name", name),
		slog.Int("faces", len(crops)),
		slog.Bool("trained", trained),
	)
	_ = s.auditLog.Log(ctx, audit.Event{
		EventType:  audit.EventIdentityEnrolled,
		IdentityID: identity.ID,
		Success:    true,
		Metadata: map[string]string{
			"faces":   strconv.Itoa(len(crops)),
			"trained": strconv.FormatBool(trained),
		},
	})

	return &domain.EnrollmentResult{
		IdentityID: identity.ID,
		Name:       name,
		Faces:      len(crops),
		Levels:     levels,
		Trained:    trained,
	}, nil
}

// UpdateIdentity partially updates name, permissions and facial data.
// The first face crop of the first new image replaces the stored
// reference blob; every located face appends embeddings and triggers a
// retrain.
func (s *EnrollmentService) UpdateIdentity(ctx context.Context, id int64, name string, rawLevels []string, images [][]byte) error {
	var levels []domain.Level
	if len(rawLevels) > 0 {
		parsed, err := domain.ParseLevels(rawLevels)
		if err != nil {
			return err
		}
		levels = parsed
	}
	if name != "" {
		if !domain.ValidName(name) {
			return domain.ErrValidation.WithError(errASCIIName)
		}
		name = domain.FormatName(name)
	}

	if _, err := s.identityRepo.GetByID(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if name != "" {
		if err := s.identityRepo.UpdateName(ctx, id, name); err != nil {
			return err
		}
	}

	for _, level := range levels {
		if err := s.permissionRepo.Add(ctx, id, level); err != nil {
			return err
		}
		_ = s.auditLog.Log(ctx, audit.Event{
			EventType:  audit.EventPermissionGranted,
			IdentityID: id,
			Level:      string(level),
			Success:    true,
		})
	}

	if len(images) == 0 {
		return nil
	}

	crops, err := s.collectFaceCrops(ctx, images)
	if err != nil {
		return err
	}
	if len(crops) == 0 {
		return domain.ErrNoFaceDetected
	}

	vectors, err := s.encodeCrops(ctx, crops)
	if err != nil {
		return domain.ErrEnrollmentFailed.WithError(err)
	}

	if err := s.identityRepo.UpdateFacialData(ctx, id, crops[0]); err != nil {
		return err
	}

	validIDs, err := s.identityRepo.IDs(ctx)
	if err != nil {
		return domain.ErrEnrollmentFailed.WithError(err)
	}
	if _, err := s.recognition.AppendAndTrain(ctx, id, vectors, validIDs); err != nil {
		return domain.ErrEnrollmentFailed.WithError(err)
	}

	_ = s.auditLog.Log(ctx, audit.Event{
		EventType:  audit.EventIdentityUpdated,
		IdentityID: id,
		Success:    true,
	})
	return nil
}

// DeleteIdentity removes the identity row (permissions cascade with
// it, audit rows stay with a nulled reference) and drops its
// embeddings from the store. The classifier keeps the stale label
// until the next retrain.
func (s *EnrollmentService) DeleteIdentity(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.identityRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.recognition.Remove(id); err != nil {
		s.logger.Warn("failed to drop embeddings for deleted identity",
			slog.Int64("identity_id", id),
			slog.Any("error", err),
		)
	}

	_ = s.auditLog.Log(ctx, audit.Event{
		EventType:  audit.EventIdentityDeleted,
		IdentityID: id,
		Success:    true,
	})
	return nil
}

// collectFaceCrops locates faces in every image and returns their
// crops, in detector order per image.
func (s *EnrollmentService) collectFaceCrops(ctx context.Context, images [][]byte) ([][]byte, error) {
	var crops [][]byte
	for _, image := range images {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		faces, err := s.provider.LocateFaces(callCtx, image)
		cancel()
		if err != nil {
			if len(crops) == 0 {
				return nil, domain.ErrInternal.WithError(err)
			}
			return nil, domain.ErrEnrollmentFailed.WithError(err)
		}

		for _, face := range faces {
			crop, err := s.provider.CropFace(image, face.BoundingBox)
			if err != nil {
				return nil, domain.ErrEnrollmentFailed.WithError(err)
			}
			crops = append(crops, crop)
		}
	}
	return crops, nil
}

func (s *EnrollmentService) encodeCrops(ctx context.Context, crops [][]byte) ([][]float64, error) {
	vectors := make([][]float64, 0, len(crops))
	for _, crop := range crops {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		vector, err := s.provider.EncodeFace(callCtx, crop)
		cancel()
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// rollback undoes the ledger rows created by a failed enrollment and
// drops any embeddings appended for the label, then surfaces the
// original cause as EnrollmentFailed.
func (s *EnrollmentService) rollback(ctx context.Context, identityID int64, cause error) error {
	if err := s.recognition.Remove(identityID); err != nil {
		s.logger.Error("rollback: failed to drop embeddings",
			slog.Int64("identity_id", identityID),
			slog.Any("error", err),
		)
	}
	// Deleting the identity cascades its permissions.
	if err := s.identityRepo.Delete(ctx, identityID); err != nil {
		s.logger.Error("rollback: failed to delete identity",
			slog.Int64("identity_id", identityID),
			slog.Any("error", err),
		)
	}

	_ = s.auditLog.Log(ctx, audit.Event{
		EventType:  audit.EventIdentityEnrolled,
		IdentityID: identityID,
		Success:    false,
		Error:      cause.Error(),
	})
	return domain.ErrEnrollmentFailed.WithError(cause)
}
