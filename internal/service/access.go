package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

// AccessService is the recognition and decision engine. One call walks
// the linear state machine image → located face → embedding →
// predicted identity → threshold → permission check → durable audit
// pair, terminating at the first failure.
type AccessService struct {
	permissionRepo repository.PermissionRepositoryInterface
	accessRepo     repository.AccessRepositoryInterface
	recognition    *RecognitionService
	provider       provider.FaceProvider
	auditLog       audit.Logger
	logger         *slog.Logger
	threshold      float64
	timeout        time.Duration
}

func NewAccessService(
	permissionRepo repository.PermissionRepositoryInterface,
	accessRepo repository.AccessRepositoryInterface,
	recognition *RecognitionService,
	faceProvider provider.FaceProvider,
	auditLog audit.Logger,
	logger *slog.Logger,
	threshold float64,
	timeout time.Duration,
) *AccessService {
	return &AccessService{
		permissionRepo: permissionRepo,
		accessRepo:     accessRepo,
		recognition:    recognition,
		provider:       faceProvider,
		auditLog:       auditLog,
		logger:         logger.With("component", "access"),
		threshold:      threshold,
		timeout:        timeout,
	}
}

// Decide runs one access attempt. Granted and Declined are successful
// completions that each write exactly one AccessRequest and one
// AccessLog; NoFaceDetected, ClassifierUnavailable and NotRecognized
// terminate without writing any ledger row.
func (s *AccessService) Decide(ctx context.Context, image []byte, rawLevel string) (*domain.Decision, error) {
	level, err := domain.ParseLevel(rawLevel)
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, domain.ErrValidation.WithError(errors.New("image is required"))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	faces, err := s.provider.LocateFaces(callCtx, image)
	cancel()
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	if len(faces) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	// Multi-face images are deliberately reduced to a single claim:
	// only the first detected face is encoded.
	crop, err := s.provider.CropFace(image, faces[0].BoundingBox)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	callCtx, cancel = context.WithTimeout(ctx, s.timeout)
	vector, err := s.provider.EncodeFace(callCtx, crop)
	cancel()
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	identityID, probability, err := s.recognition.Recognize(vector)
	if err != nil {
		return nil, err
	}

	if probability <= s.threshold {
		s.logger.Info("face below recognition threshold",
			slog.Int64("predicted", identityID),
			slog.Float64("probability", probability),
			slog.Float64("threshold", s.threshold),
		)
		return nil, domain.ErrNotRecognized
	}

	granted, err := s.permissionRepo.Has(ctx, identityID, level)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	outcome := domain.OutcomeDenied
	eventType := audit.EventAccessDeclined
	if granted {
		outcome = domain.OutcomeGranted
		eventType = audit.EventAccessGranted
	}

	request := &domain.AccessRequest{
		IdentityID:    &identityID,
		RequiredLevel: level,
		Outcome:       outcome,
		FacialData:    image,
	}
	details := fmt.Sprintf("identity %d requested level %q: %s (confidence %.3f)",
		identityID, level, outcome, probability)

	if _, err := s.accessRepo.CreateWithLog(ctx, request, details); err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	s.logger.Info("access decision recorded",
		slog.Int64("identity_id", identityID),
		slog.String("required_level", string(level)),
		slog.String("outcome", string(outcome)),
		slog.Float64("probability", probability),
	)
	_ = s.auditLog.Log(ctx, audit.Event{
		EventType:  eventType,
		IdentityID: identityID,
		Level:      string(level),
		Success:    true,
		Metadata: map[string]string{
			"access_request_id": fmt.Sprintf("%d", request.ID),
		},
	})

	return &domain.Decision{
		Granted:         granted,
		IdentityID:      identityID,
		AccessRequestID: request.ID,
		Confidence:      probability,
	}, nil
}
