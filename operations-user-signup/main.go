// Package main implements the Cognito Post-Confirmation trigger that gives
// self-registered users the default role (viewer unless DEFAULT_SIGNUP_ROLE
// says otherwise). Invited users keep the groups an admin assigned them.
package main

import (
	"context"
	"operations/lib/clients"
	"operations/lib/constants"
	"operations/lib/data"
	"operations/lib/handlers"
	"operations/lib/models"
	"operations/lib/util"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

var (
	logger        *logrus.Logger
	isLocal       bool
	ssmRepository data.SSMRepository
	ssmParams     map[string]string
	signupHandler *handlers.SignupHandler
)

func main() {
	lambda.Start(signupHandler.Handle)
}

func init() {
	var err error
	ctx := context.Background()

	isLocal, _ = strconv.ParseBool(os.Getenv("IS_LOCAL"))
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

	defaultRole := models.RoleName(ssmParams[constants.DEFAULT_SIGNUP_ROLE])
	if defaultRole == "" {
		defaultRole = models.RoleViewer
	}

	signupHandler = &handlers.SignupHandler{
		Registry: registry,
		Identity: &data.IdentityDao{
			Cognito:    clients.NewCognitoClient(isLocal),
			UserPoolID: ssmParams[constants.COGNITO_USER_POOL_ID],
			Logger:     logger,
		},
		DefaultRole: defaultRole,
		Logger:      logger,
	}

	logger.WithFields(logrus.Fields{
		"operation":    "init",
		"default_role": defaultRole,
	}).Info("User Signup Lambda initialization completed successfully")
}

func setupLogger(isLocal bool) *logrus.Logger {
	logger := logrus.New()
	util.SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: isLocal})
	return logger
}
