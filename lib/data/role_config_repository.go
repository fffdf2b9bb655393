package data

import (
	"context"
	"fmt"
	"io"
	"operations/lib/access"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// RoleConfigRepository loads the role registry once at startup
type RoleConfigRepository interface {
	LoadRegistry(ctx context.Context) (*access.Registry, error)
}

// S3ObjectReader is the subset of the S3 client the registry loader needs
type S3ObjectReader interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// RoleConfigDao reads the registry YAML from S3. When no bucket is configured
// the table compiled into the binary is used instead.
type RoleConfigDao struct {
	S3     S3ObjectReader
	Bucket string
	Key    string
	Logger *logrus.Logger
}

// LoadRegistry fetches and parses the registry, then logs every configuration
// problem it finds. Problems do not fail the load: unknown roles and
// permissions already resolve to nothing.
func (dao *RoleConfigDao) LoadRegistry(ctx context.Context) (*access.Registry, error) {
	registry, source, err := dao.load(ctx)
	if err != nil {
		return nil, err
	}

	problems := registry.Validate()
	for _, problem := range problems {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "LoadRegistry",
			"source":    source,
		}).Warn(problem.Error())
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "LoadRegistry",
		"source":    source,
		"roles":     len(registry.Roles()),
		"problems":  len(problems),
	}).Info("Role registry loaded")

	return registry, nil
}

func (dao *RoleConfigDao) load(ctx context.Context) (*access.Registry, string, error) {
	if dao.S3 == nil || dao.Bucket == "" || dao.Key == "" {
		registry, err := access.DefaultRegistry()
		return registry, "embedded", err
	}

	source := fmt.Sprintf("s3://%s/%s", dao.Bucket, dao.Key)
	output, err := dao.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(dao.Bucket),
		Key:    aws.String(dao.Key),
	})
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"source": source,
			"error":  err.Error(),
		}).Error("Failed to fetch role registry object")
		return nil, source, fmt.Errorf("failed to fetch role registry: %w", err)
	}
	defer output.Body.Close()

	body, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, source, fmt.Errorf("failed to read role registry: %w", err)
	}

	registry, err := access.ParseRegistry(body)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"source": source,
			"error":  err.Error(),
		}).Error("Failed to parse role registry object")
		return nil, source, err
	}
	return registry, source, nil
}
