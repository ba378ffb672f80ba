/*
Package cloud sends captured face images to a remote face recognition
service to enroll a template, identify a face against enrolled templates or
delete a template.
*/
package cloud

import (
	"context"
	"fmt"
)

// maxImageSize is the largest JPEG accepted for upload
const maxImageSize = 5 * 1024 * 1024

// Provider is a remote face recognition service
type Provider interface {
	// Enroll creates a template from the face in the JPEG image.  An empty
	// templateID lets the service choose one.
	Enroll(ctx context.Context, jpeg []byte, templateID string) (*EnrollResult, error)
	// Identify searches the enrolled templates for the face in the image
	Identify(ctx context.Context, jpeg []byte) (*IdentifyResult, error)
	// Delete removes an enrolled template
	Delete(ctx context.Context, templateID string) (*DeleteResult, error)
}

// ScoreFlag is a check score with the service's verdict
type ScoreFlag struct {
	Score float64 `json:"score"`
	Fine  bool    `json:"fine"`
}

// FaceDetails are the optional attributes a service reports for a face
type FaceDetails struct {
	Liveness *ScoreFlag `json:"liveness,omitempty"`
	Deepfake *ScoreFlag `json:"deepfake,omitempty"`
	Gender   string     `json:"gender,omitempty"`
	Age      int        `json:"age,omitempty"`
}

// EnrollResult is the outcome of a successful Enroll
type EnrollResult struct {
	TransactionID string
	TemplateID    string
	// ExternalID is the caller supplied ID, where the service keeps one
	// apart from its own template ID
	ExternalID string
	Face       *FaceDetails
}

// IdentifyResult is the outcome of a successful Identify.  Matched is false
// when the face was found in the image but no template was similar enough.
type IdentifyResult struct {
	TransactionID string
	Matched       bool
	TemplateID    string
	ExternalID    string
	// Similarity is in the range 0 to 1
	Similarity float64
	Face       *FaceDetails
}

// DeleteResult is the outcome of a successful Delete
type DeleteResult struct {
	TransactionID string
}

// validateImage rejects empty and oversized images before upload
func validateImage(jpeg []byte) error {

	if len(jpeg) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	if len(jpeg) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)",
			ErrInvalidImage, len(jpeg), maxImageSize)
	}

	return nil
}
