package drive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"notebox/internal/config"
	"notebox/internal/nb"
)

const (
	uploadURLExpiry = 15 * time.Minute
	linkExpiry      = 7 * 24 * time.Hour
)

// objectAPI is the subset of *s3.Client used by S3Backend.
type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// presignAPI is the subset of *s3.PresignClient used by S3Backend.
type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Backend hands out presigned PUT URLs so clients upload straight to the
// bucket. Objects are keyed <prefix>/<id>/<filename>.
type S3Backend struct {
	objects   objectAPI
	presign   presignAPI
	bucket    string
	prefix    string
	publicURL string // when set, links are <publicURL>/<key> instead of presigned GETs
	idgen     nb.IDGenerator
}

// NewS3Backend creates an S3Backend from relay configuration. Static
// credentials are used when both keys are set; otherwise the default AWS
// credential chain applies.
func NewS3Backend(ctx context.Context, cfg config.DriveConfig) (*S3Backend, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 drive requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Backend(client, s3.NewPresignClient(client), cfg.S3Bucket, cfg.S3Prefix, cfg.PublicURL, nil), nil
}

func newS3Backend(objects objectAPI, presign presignAPI, bucket, prefix, publicURL string, idgen nb.IDGenerator) *S3Backend {
	if idgen == nil {
		idgen = nb.UUIDGenerator{}
	}
	return &S3Backend{
		objects:   objects,
		presign:   presign,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		idgen:     idgen,
	}
}

func (b *S3Backend) Issue(ctx context.Context, filename, mimeType string) (*Ticket, error) {
	key := b.key(b.idgen.New(), filename)

	in := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}
	if mimeType != "" {
		in.ContentType = aws.String(mimeType)
	}

	req, err := b.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(uploadURLExpiry))
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}
	return &Ticket{UploadURL: req.URL, CorrelationID: key}, nil
}

// Finalize confirms the object exists. fileID is the object key handed
// out by Issue; S3 PUT responses carry no body, so it is usually the
// correlation id echoed back by the client. Only an empty fileID falls
// back to the newest object with the same filename.
func (b *S3Backend) Finalize(ctx context.Context, filename, fileID string) (string, error) {
	if fileID != "" {
		if !b.owns(fileID) {
			return "", ErrFileNotFound
		}
		_, err := b.objects.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(fileID),
		})
		if err == nil {
			return b.link(ctx, fileID)
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("checking object %s: %w", fileID, err)
	}

	key, err := b.newestByName(ctx, filename)
	if err != nil {
		return "", err
	}
	return b.link(ctx, key)
}

func (b *S3Backend) newestByName(ctx context.Context, filename string) (string, error) {
	var (
		newest   string
		newestAt time.Time
		token    *string
	)
	listPrefix := ""
	if b.prefix != "" {
		listPrefix = b.prefix + "/"
	}

	for {
		out, err := b.objects.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(listPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return "", fmt.Errorf("listing objects: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if path.Base(key) != filename {
				continue
			}
			modified := aws.ToTime(obj.LastModified)
			if newest == "" || modified.After(newestAt) {
				newest, newestAt = key, modified
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	if newest == "" {
		return "", ErrFileNotFound
	}
	return newest, nil
}

func (b *S3Backend) link(ctx context.Context, key string) (string, error) {
	if b.publicURL != "" {
		return b.publicURL + "/" + key, nil
	}
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(linkExpiry))
	if err != nil {
		return "", fmt.Errorf("presigning link: %w", err)
	}
	return req.URL, nil
}

func (b *S3Backend) key(id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if b.prefix == "" {
		return id + "/" + name
	}
	return b.prefix + "/" + id + "/" + name
}

func (b *S3Backend) owns(key string) bool {
	return b.prefix == "" || strings.HasPrefix(key, b.prefix+"/")
}

var _ Backend = (*S3Backend)(nil)
