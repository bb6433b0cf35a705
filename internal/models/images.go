package models

// ImageKind discriminates the two halves of a pair.
type ImageKind string

const (
	ImageKindColor   ImageKind = "color"
	ImageKindStencil ImageKind = "stencil"
)

// GeneratedImage is the result of one image-generation call. The pipeline
// does not cache or persist images; ownership passes to the caller.
type GeneratedImage struct {
	ID           string    `json:"id"`
	Kind         ImageKind `json:"kind"`
	Data         []byte    `json:"-"`
	Seed         int64     `json:"seed"` // seed actually used (provider may replace 0)
	FinishReason string    `json:"finish_reason"`
	OutputFormat string    `json:"output_format"`
}

// ImagePair is a color image and a stencil image sharing one seed by
// construction. If either half fails there is no pair.
type ImagePair struct {
	Color   *GeneratedImage `json:"color"`
	Stencil *GeneratedImage `json:"stencil"`
	Seed    int64           `json:"seed"`
}
