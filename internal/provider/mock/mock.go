package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const embeddingDimension = 512

// facelessMarker marks images the mock treats as containing no face.
var facelessMarker = []byte("faceless")

// Provider implementa provider.FaceProvider para testes e desenvolvimento
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// LocateFaces simula detecção: uma face cobrindo a imagem inteira,
// zero faces para imagens marcadas com o prefixo "faceless".
func (p *Provider) LocateFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) < 100 {
		return nil, domain.ErrInvalidImage
	}
	if bytes.HasPrefix(image, facelessMarker) {
		return []provider.DetectedFace{}, nil
	}

	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      0,
				Y:      0,
				Width:  640,
				Height: 640,
			},
			Confidence: 0.99,
		},
	}, nil
}

// CropFace devolve a imagem como está; o mock não decodifica pixels.
func (p *Provider) CropFace(image []byte, box provider.BoundingBox) ([]byte, error) {
	if len(image) < 100 {
		return nil, domain.ErrInvalidImage
	}
	return image, nil
}

// EncodeFace gera embedding determinístico baseado no hash da imagem,
// então a mesma imagem sempre produz o mesmo vetor.
func (p *Provider) EncodeFace(ctx context.Context, face []byte) ([]float64, error) {
	if len(face) < 100 {
		return nil, domain.ErrInvalidImage
	}
	return generateEmbedding(face), nil
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		round := i / hashLen
		embedding[i] = (float64(hash[idx]^byte(round*31))/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var _ provider.FaceProvider = (*Provider)(nil)
