package main

import (
	"context"
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
	logger        *logrus.Logger
	isLocal       bool
	ssmRepository data.SSMRepository
	ssmParams     map[string]string
	corsHandler   *handlers.CORSHandler
)

func main() {
	lambda.Start(corsHandler.Handle)
}

func init() {
	isLocal, _ = strconv.ParseBool(os.Getenv("IS_LOCAL"))

	logger = logrus.New()
	util.SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	logger.SetFormatter(&logrus.JSONFormatter{
		PrettyPrint: isLocal,
	})

	// Setup SSM client
	ssmRepository = &data.SSMDao{
		SSM:    clients.NewSSMClient(isLocal),
		Logger: logger,
	}

	// Get SSM parameters
	var err error
	ssmParams, err = ssmRepository.GetParameters(context.Background())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Fatal("Error while getting ssm params from param store")
	}

	corsHandler = &handlers.CORSHandler{
		AllowedOrigins: handlers.ParseOrigins(ssmParams[constants.ALLOWED_ORIGINS]),
		Logger:         logger,
	}
}
