// Package main implements the Cognito Pre Token Generation V2.0 trigger.
//
// It adds three claims to both the ID and the access token:
//   - roles: the user's Cognito groups that are registered roles, comma separated
//   - permissions: the effective permissions of those roles, comma separated
//   - full_name: from the name or given_name/family_name attributes
//
// Errors are logged and the event is returned unchanged, so a broken lookup
// never blocks sign-in.
package main

import (
	"context"
	"operations/lib/access"
	"operations/lib/clients"
	"operations/lib/constants"
	"operations/lib/data"
	"operations/lib/handlers"
	"operations/lib/util"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

var (
	logger          *logrus.Logger
	isLocal         bool
	ssmRepository   data.SSMRepository
	ssmParams       map[string]string
	tokenCustomizer *handlers.TokenCustomizer
)

func main() {
	lambda.Start(tokenCustomizer.Handle)
}

func init() {
	var err error
	ctx := context.Background()

	isLocal = parseIsLocal()
	logger = setupLogger(isLocal)

	ssmRepository = &data.SSMDao{
		SSM:    clients.NewSSMClient(isLocal),
		Logger: logger,
	}

	ssmParams, err = ssmRepository.GetParameters(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error while getting SSM params from parameter store")
	}

	roleConfig := &data.RoleConfigDao{
		Bucket: ssmParams[constants.ROLE_REGISTRY_BUCKET],
		Key:    ssmParams[constants.ROLE_REGISTRY_KEY],
		Logger: logger,
	}
	if roleConfig.Bucket != "" {
		roleConfig.S3 = clients.NewS3Client(isLocal)
	}

	registry, err := roleConfig.LoadRegistry(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error loading role registry")
	}

	tokenCustomizer = &handlers.TokenCustomizer{
		Resolver: access.NewResolver(registry, logger),
		Identity: &data.IdentityDao{
			Cognito:    clients.NewCognitoClient(isLocal),
			UserPoolID: ssmParams[constants.COGNITO_USER_POOL_ID],
			Logger:     logger,
		},
		Logger: logger,
	}

	logger.WithField("operation", "init").Info("Token Customizer Lambda initialization completed successfully")
}

func parseIsLocal() bool {
	isLocal, _ := strconv.ParseBool(os.Getenv("IS_LOCAL"))
	return isLocal
}

func setupLogger(isLocal bool) *logrus.Logger {
	logger := logrus.New()
	util.SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: isLocal})
	return logger
}
