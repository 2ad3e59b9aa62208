package provider

import "context"

// FaceProvider define a interface para o colaborador externo de
// detecção e codificação facial.
type FaceProvider interface {
	// LocateFaces detecta faces na imagem e retorna uma bounding box
	// com confiança para cada uma, na ordem do detector.
	LocateFaces(ctx context.Context, image []byte) ([]DetectedFace, error)

	// CropFace recorta a região de uma face detectada da imagem
	// original. O recorte é o material de referência arquivado por
	// identidade e a entrada do EncodeFace.
	CropFace(image []byte, box BoundingBox) ([]byte, error)

	// EncodeFace gera o embedding de comprimento fixo de uma face já
	// recortada.
	EncodeFace(ctx context.Context, face []byte) ([]float64, error)
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}

// BoundingBox represents the face area in the image, in pixels
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
