package data

import (
	"context"
	"operations/lib/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/sirupsen/logrus"
)

type SSMRepository interface {
	GetParameters(ctx context.Context) (map[string]string, error)
}

type SSMClientInterface interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

type SSMDao struct {
	SSM    SSMClientInterface
	Logger *logrus.Logger
}

// GetParameters reads every decrypted parameter under the service path, following pagination
func (client *SSMDao) GetParameters(ctx context.Context) (map[string]string, error) {
	params := map[string]string{}
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(constants.PARAMETER_PATH),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	}

	pages := 0
	for {
		output, err := client.SSM.GetParametersByPath(ctx, input)
		if err != nil {
			client.Logger.WithFields(logrus.Fields{
				"path":  constants.PARAMETER_PATH,
				"page":  pages,
				"error": err.Error(),
			}).Error("Failed to read SSM parameters")
			return nil, err
		}
		pages++

		for _, param := range output.Parameters {
			params[aws.ToString(param.Name)] = aws.ToString(param.Value)
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	client.Logger.WithFields(logrus.Fields{
		"path":  constants.PARAMETER_PATH,
		"pages": pages,
		"count": len(params),
	}).Debug("Loaded SSM parameters")
	return params, nil
}
