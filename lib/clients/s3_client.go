package clients

import (
	"context"
	"operations/lib/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client creates the S3 client used to read configuration objects
func NewS3Client(isLocal bool) *s3.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(constants.AWS_REGION),
	)
	if err != nil {
		panic("failed to load AWS configuration: " + err.Error())
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if isLocal {
			// LocalStack configuration
			o.BaseEndpoint = aws.String(constants.LOCALSTACK_ENDPOINT)
		}
		o.UsePathStyle = true
	})
}
