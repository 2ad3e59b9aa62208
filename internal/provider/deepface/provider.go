package deepface

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels

	// cropSize is the side of the square face crop fed to the encoder
	cropSize = 224
)

// Provider implements provider.FaceProvider using the DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.Detector == "" {
		config.Detector = DefaultConfig().Detector
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Provider{
		client: NewClient(config),
	}
}

// LocateFaces detects faces in the image
func (p *Provider) LocateFaces(ctx context.Context, img []byte) ([]provider.DetectedFace, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(img)

	resp, err := p.client.Represent(ctx, imageBase64, p.client.config.Detector)
	if err != nil {
		return nil, fmt.Errorf("locate faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		confidence := result.Confidence
		if confidence == 0 {
			// Older DeepFace builds omit face_confidence; estimate
			// from face area (larger faces detect more reliably).
			confidence = estimateConfidence(float64(result.FacialArea.W * result.FacialArea.H))
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      float64(result.FacialArea.X),
				Y:      float64(result.FacialArea.Y),
				Width:  float64(result.FacialArea.W),
				Height: float64(result.FacialArea.H),
			},
			Confidence: confidence,
		})
	}

	return faces, nil
}

func estimateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5
	}
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

// CropFace cuts the face region out of the original image and rescales
// it to the encoder input size.
func (p *Provider) CropFace(img []byte, box provider.BoundingBox) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}

	bounds := src.Bounds()
	region := image.Rect(int(box.X), int(box.Y), int(box.X+box.Width), int(box.Y+box.Height))
	region = region.Intersect(bounds)
	if region.Empty() {
		return nil, fmt.Errorf("%w: bounding box outside image", ErrInvalidImageFormat)
	}

	dst := image.NewRGBA(image.Rect(0, 0, cropSize, cropSize))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, region, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode face crop: %w", err)
	}

	return buf.Bytes(), nil
}

// EncodeFace extracts the embedding of an already-cropped face. The
// detector is skipped so DeepFace embeds the crop as-is.
func (p *Provider) EncodeFace(ctx context.Context, face []byte) ([]float64, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(face)

	resp, err := p.client.Represent(ctx, imageBase64, "skip")
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, ErrNoFaceInResponse
	}

	return resp.Results[0].Embedding, nil
}

// Ensure Provider implements provider.FaceProvider
var _ provider.FaceProvider = (*Provider)(nil)
