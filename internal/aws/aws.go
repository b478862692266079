package aws

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Clients struct {
	bucketName string
	s3Client   objectAPI
	presigner  presignAPI
}

// Init loads the default credential chain for region.
func Init(ctx context.Context, bucketName, region string) (*Clients, error) {
	if bucketName == "" || region == "" {
		return nil, errors.New("s3 bucket or region not present")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws sdk config")
	}
	client := s3.NewFromConfig(cfg)
	log.Infof("s3 client initialized for bucket %v", bucketName)
	return &Clients{
		bucketName: bucketName,
		s3Client:   client,
		presigner:  s3.NewPresignClient(client),
	}, nil
}

func (s *Clients) GetS3PresignedAccessURL(ctx context.Context, key string, expire time.Duration) (string, error) {
	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expire))
	if err != nil {
		return "", errors.WithStackAndReport(err)
	}
	return request.URL, nil
}

func (s *Clients) PutFileToS3(ctx context.Context, key, contentType string, file io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	}
	_, err := s.s3Client.PutObject(ctx, input)
	return errors.WrapAndReport(err, "put object to s3")
}

func (s *Clients) DeleteFileFromS3(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}
	_, err := s.s3Client.DeleteObject(ctx, input)
	return errors.WrapAndReport(err, "delete s3 object")
}
