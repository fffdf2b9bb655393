// Package main implements the access management Lambda: the permission
// catalog, the role registry and effective permissions of the caller or of
// another user looked up in Cognito.
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
	logger               *logrus.Logger
	isLocal              bool
	ssmRepository        data.SSMRepository
	ssmParams            map[string]string
	identityRepository   data.IdentityRepository
	roleConfigRepository data.RoleConfigRepository
	accessHandler        *handlers.AccessHandler
)

func main() {
	lambda.Start(accessHandler.Handle)
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
	roleConfigRepository = roleConfig

	registry, err := roleConfigRepository.LoadRegistry(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error loading role registry")
	}

	identityRepository = &data.IdentityDao{
		Cognito:    clients.NewCognitoClient(isLocal),
		UserPoolID: ssmParams[constants.COGNITO_USER_POOL_ID],
		Logger:     logger,
	}

	accessHandler = &handlers.AccessHandler{
		Resolver: access.NewResolver(registry, logger),
		Identity: identityRepository,
		Logger:   logger,
	}

	logger.WithField("operation", "init").Info("Access Management Lambda initialization completed successfully")
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
