package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/contentloop/configs"
	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

const MaxMediaBytes = 50 << 20

// ObjectPutter is the slice of the S3 API used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type MediaService interface {
	Upload(ctx context.Context, brandID int64, data []byte) (models.MediaRef, error)
}

type r2MediaService struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

func NewMediaService(client ObjectPutter, r2 cfg.R2) MediaService {
	return &r2MediaService{
		client:    client,
		bucket:    r2.BucketName,
		publicURL: strings.TrimRight(r2.PublicURL, "/"),
	}
}

// NewR2Client builds an S3 client pointed at the Cloudflare R2 account.
func NewR2Client(ctx context.Context, r2 cfg.R2) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	}), nil
}

// Upload stores an image or video and returns a reference to its public URL.
func (s *r2MediaService) Upload(ctx context.Context, brandID int64, data []byte) (models.MediaRef, error) {
	if len(data) == 0 {
		return models.MediaRef{}, fmt.Errorf("%w: empty upload", models.ErrInvalidInput)
	}
	if len(data) > MaxMediaBytes {
		return models.MediaRef{}, fmt.Errorf("%w: upload exceeds %d bytes", models.ErrInvalidInput, MaxMediaBytes)
	}

	kind, ft := content.KindFromBytes(data)
	if kind == models.MediaUnknown {
		return models.MediaRef{}, fmt.Errorf("%w: only images and videos can be attached", models.ErrInvalidInput)
	}

	id, err := gonanoid.New()
	if err != nil {
		return models.MediaRef{}, err
	}
	key := fmt.Sprintf("brands/%d/%s.%s", brandID, id, ft.Extension)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ft.MIME.Value),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to upload media to r2")
		return models.MediaRef{}, fmt.Errorf("upload media: %w", err)
	}

	return models.MediaRef{URL: s.publicURL + "/" + key, Kind: kind}, nil
}
