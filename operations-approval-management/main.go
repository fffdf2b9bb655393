// Package main implements the approval management Lambda behind API Gateway.
//
// Routes:
//   - POST /approvals                               create a request
//   - GET  /approvals                               pending requests (?type=, ?status=)
//   - GET  /approvals/visible                       requests the caller can act on
//   - GET  /approvals/{requestId}                   one request
//   - GET  /approvals/{requestId}/actions           its audit trail
//   - POST /approvals/{requestId}/approve|reject|cancel
//
// Requests live in PostgreSQL. Each container keeps a warm copy in an
// ApprovalStore and refreshes it on every invocation; the conditional update
// in the DAO decides races between containers.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"operations/lib/access"
	"operations/lib/clients"
	"operations/lib/constants"
	"operations/lib/data"
	"operations/lib/handlers"
	"operations/lib/store"
	"operations/lib/util"
	"operations/lib/workflow"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

// Global variables for Lambda cold start optimization
var (
	logger               *logrus.Logger
	isLocal              bool
	ssmRepository        data.SSMRepository
	ssmParams            map[string]string
	sqlDB                *sql.DB
	approvalRepository   data.ApprovalRepository
	roleConfigRepository data.RoleConfigRepository
	approvalHandler      *handlers.ApprovalHandler
)

// main is the Lambda function entry point
func main() {
	lambda.Start(approvalHandler.Handle)
}

func init() {
	var err error
	ctx := context.Background()

	isLocal = parseIsLocal()

	// Logger Setup
	logger = setupLogger(isLocal)

	// Initialize AWS SSM Parameter Store client
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

	if err = setupApprovalRepository(ssmParams); err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error setting up approval repository")
	}

	roleConfigRepository = newRoleConfigRepository(ssmParams)
	registry, err := roleConfigRepository.LoadRegistry(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error loading role registry")
	}

	approvals, err := store.NewApprovalStore(ctx, approvalRepository, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error loading approval requests")
	}

	gate := access.NewGate(access.NewResolver(registry, logger))
	approvalHandler = &handlers.ApprovalHandler{
		Engine: workflow.NewEngine(gate, approvals, logger),
		Store:  approvals,
		Gate:   gate,
		Logger: logger,
	}

	logger.WithField("operation", "init").Info("Approval Management Lambda initialization completed successfully")
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

func newRoleConfigRepository(ssmParams map[string]string) data.RoleConfigRepository {
	dao := &data.RoleConfigDao{
		Bucket: ssmParams[constants.ROLE_REGISTRY_BUCKET],
		Key:    ssmParams[constants.ROLE_REGISTRY_KEY],
		Logger: logger,
	}
	if dao.Bucket != "" {
		dao.S3 = clients.NewS3Client(isLocal)
	}
	return dao
}

func setupApprovalRepository(ssmParams map[string]string) error {
	// Local runs without a database keep requests in memory
	if isLocal && ssmParams[constants.DATABASE_RDS_ENDPOINT] == "" {
		logger.WithField("operation", "setupApprovalRepository").Warn("No database configured, using in-memory approval repository")
		approvalRepository = &data.MemoryApprovalDao{Logger: logger}
		return nil
	}

	var err error
	sqlDB, err = clients.NewPostgresSQLClient(
		ssmParams[constants.DATABASE_RDS_ENDPOINT],
		ssmParams[constants.DATABASE_PORT],
		ssmParams[constants.DATABASE_NAME],
		ssmParams[constants.DATABASE_USERNAME],
		ssmParams[constants.DATABASE_PASSWORD],
		ssmParams[constants.SSL_MODE],
	)
	if err != nil {
		return fmt.Errorf("error creating PostgreSQL client: %w", err)
	}

	approvalRepository = &data.ApprovalDao{
		DB:     sqlDB,
		Logger: logger,
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithField("operation", "setupApprovalRepository").Debug("PostgreSQL client initialized successfully")
	}
	return nil
}
