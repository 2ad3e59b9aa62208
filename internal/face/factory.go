package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/mock"
)

// ProviderType defines supported face detection/encoding provider types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace provider (HTTP collaborator)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock is the deterministic in-process provider (dev/test)
	ProviderTypeMock ProviderType = "mock"
)

// NewFaceProvider creates a FaceProvider instance based on configuration
//
// Environment variables:
//   - FACE_PROVIDER: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - PROVIDER_TIMEOUT: per-call timeout for collaborator requests
func NewFaceProvider(cfg *config.Config) (provider.FaceProvider, error) {
	switch ProviderType(cfg.FaceProvider) {
	case ProviderTypeMock:
		return mock.New(), nil

	case ProviderTypeDeepFace, "":
		deepfaceConfig := deepface.Config{
			BaseURL: cfg.DeepFaceURL,
			Timeout: cfg.ProviderTimeout,
		}
		if deepfaceConfig.BaseURL == "" {
			deepfaceConfig.BaseURL = deepface.DefaultConfig().BaseURL
		}
		return deepface.NewProvider(deepfaceConfig), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.FaceProvider, ProviderTypeDeepFace, ProviderTypeMock)
	}
}
