package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
	smithymiddleware "github.com/aws/smithy-go/middleware"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

const (
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeResourceNotFound = "ResourceNotFoundException"
	errCodeResourceExists   = "ResourceAlreadyExistsException"
	errCodeInvalidParameter = "InvalidParameterException"
)

// ErrAccessDenied indicates AWS credentials are missing or lack permission
var ErrAccessDenied = errors.New("invalid or missing AWS credentials")

// RekognitionConfig holds the AWS Rekognition settings, loaded from
// REKOGNITION_* environment variables.  Credentials come from the AWS
// default credential chain.
type RekognitionConfig struct {
	Region       string `envconfig:"REGION" default:"us-east-1"`
	CollectionID string `envconfig:"COLLECTION_ID" default:"facecapture"`
	// Threshold is the minimum similarity, 0 to 1, for an identify match
	Threshold float64 `envconfig:"THRESHOLD" default:"0.9"`
}

// LoadRekognitionConfig reads the configuration from the environment
func LoadRekognitionConfig() (RekognitionConfig, error) {
	var cfg RekognitionConfig

	if err := envconfig.Process("REKOGNITION", &cfg); err != nil {
		return cfg, fmt.Errorf("load rekognition config: %w", err)
	}

	return cfg, nil
}

// RekognitionAPI is the subset of the AWS Rekognition client used
type RekognitionAPI interface {
	CreateCollection(ctx context.Context, params *rekognition.CreateCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error)
	IndexFaces(ctx context.Context, params *rekognition.IndexFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
	SearchFacesByImage(ctx context.Context, params *rekognition.SearchFacesByImageInput, optFns ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
	DeleteFaces(ctx context.Context, params *rekognition.DeleteFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DeleteFacesOutput, error)
}

// Rekognition is a Provider backed by an AWS Rekognition face collection.
// Template IDs are Rekognition face IDs, the caller's template ID is kept
// as the external image ID.
type Rekognition struct {
	api RekognitionAPI
	cfg RekognitionConfig
}

var _ Provider = (*Rekognition)(nil)

// NewRekognition creates a provider using the AWS default credential chain
// and makes sure the collection exists
func NewRekognition(ctx context.Context, cfg RekognitionConfig) (*Rekognition, error) {

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	r := NewRekognitionWithAPI(rekognition.NewFromConfig(awsCfg), cfg)

	if err := r.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

// NewRekognitionWithAPI returns a provider using the given client
func NewRekognitionWithAPI(api RekognitionAPI, cfg RekognitionConfig) *Rekognition {
	return &Rekognition{api: api, cfg: cfg}
}

// EnsureCollection creates the face collection unless it already exists
func (r *Rekognition) EnsureCollection(ctx context.Context) error {

	_, err := r.api.CreateCollection(ctx, &rekognition.CreateCollectionInput{
		CollectionId: aws.String(r.cfg.CollectionID),
	})

	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeResourceExists:
			return nil
		case errCodeAccessDenied:
			return fmt.Errorf("collection %s: %w", r.cfg.CollectionID, ErrAccessDenied)
		}
	}

	return fmt.Errorf("failed to create collection %s: %w", r.cfg.CollectionID, err)
}

// Enroll indexes the single largest face in the image
func (r *Rekognition) Enroll(ctx context.Context, jpeg []byte, templateID string) (*EnrollResult, error) {

	if err := validateImage(jpeg); err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}

	if templateID == "" {
		templateID = uuid.NewString()
	}

	out, err := r.api.IndexFaces(ctx, &rekognition.IndexFacesInput{
		CollectionId:        aws.String(r.cfg.CollectionID),
		Image:               &types.Image{Bytes: jpeg},
		ExternalImageId:     aws.String(templateID),
		MaxFaces:            aws.Int32(1),
		QualityFilter:       types.QualityFilterAuto,
		DetectionAttributes: []types.Attribute{types.AttributeDefault},
	})

	if err != nil {
		return nil, fmt.Errorf("enroll: %w", r.parseError(err))
	}

	if len(out.FaceRecords) == 0 || out.FaceRecords[0].Face == nil {
		if len(out.UnindexedFaces) > 0 && len(out.UnindexedFaces[0].Reasons) > 0 {
			return nil, fmt.Errorf("enroll: %w: %s", ErrNoFace, out.UnindexedFaces[0].Reasons[0])
		}
		return nil, fmt.Errorf("enroll: %w", ErrNoFace)
	}

	face := out.FaceRecords[0].Face

	return &EnrollResult{
		TransactionID: requestID(out.ResultMetadata),
		TemplateID:    aws.ToString(face.FaceId),
		ExternalID:    aws.ToString(face.ExternalImageId),
	}, nil
}

// Identify searches the collection for the largest face in the image
func (r *Rekognition) Identify(ctx context.Context, jpeg []byte) (*IdentifyResult, error) {

	if err := validateImage(jpeg); err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	out, err := r.api.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(r.cfg.CollectionID),
		Image:              &types.Image{Bytes: jpeg},
		MaxFaces:           aws.Int32(1),
		FaceMatchThreshold: aws.Float32(float32(r.cfg.Threshold * 100)),
	})

	if err != nil {
		return nil, fmt.Errorf("identify: %w", r.parseError(err))
	}

	res := &IdentifyResult{TransactionID: requestID(out.ResultMetadata)}

	if len(out.FaceMatches) == 0 || out.FaceMatches[0].Face == nil {
		return res, nil
	}

	best := out.FaceMatches[0]

	res.Matched = true
	res.TemplateID = aws.ToString(best.Face.FaceId)
	res.ExternalID = aws.ToString(best.Face.ExternalImageId)
	res.Similarity = float64(aws.ToFloat32(best.Similarity)) / 100

	return res, nil
}

// Delete removes the face from the collection
func (r *Rekognition) Delete(ctx context.Context, templateID string) (*DeleteResult, error) {

	if templateID == "" {
		return nil, fmt.Errorf("delete: %w: empty template id", ErrNotFound)
	}

	out, err := r.api.DeleteFaces(ctx, &rekognition.DeleteFacesInput{
		CollectionId: aws.String(r.cfg.CollectionID),
		FaceIds:      []string{templateID},
	})

	if err != nil {
		return nil, fmt.Errorf("delete: %w", r.parseError(err))
	}

	if len(out.DeletedFaces) == 0 {
		return nil, fmt.Errorf("delete %s: %w", templateID, ErrNotFound)
	}

	return &DeleteResult{TransactionID: requestID(out.ResultMetadata)}, nil
}

// parseError maps AWS error codes onto the package sentinel errors
func (r *Rekognition) parseError(err error) error {

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case errCodeInvalidParameter:
		// rekognition reports an image without a face as an invalid parameter
		if msg := apiErr.ErrorMessage(); msg != "" {
			return fmt.Errorf("%w: %s", ErrNoFace, msg)
		}
		return ErrNoFace
	case errCodeResourceNotFound:
		return fmt.Errorf("collection %s: %w", r.cfg.CollectionID, ErrNotFound)
	case errCodeAccessDenied:
		return ErrAccessDenied
	}

	return err
}

// requestID returns the AWS request ID of a response
func requestID(md smithymiddleware.Metadata) string {
	id, _ := awsmiddleware.GetRequestIDMetadata(md)
	return id
}
