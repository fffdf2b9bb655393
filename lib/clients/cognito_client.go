package clients

import (
	"context"
	"operations/lib/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// NewCognitoClient creates the Cognito Identity Provider client used to look up users and their groups
func NewCognitoClient(isLocal bool) *cognitoidentityprovider.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(constants.AWS_REGION),
	)
	if err != nil {
		panic("failed to load AWS configuration: " + err.Error())
	}

	if isLocal {
		cfg.BaseEndpoint = aws.String(constants.LOCALSTACK_ENDPOINT)
	}

	return cognitoidentityprovider.NewFromConfig(cfg)
}
