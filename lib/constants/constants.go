package constants

// SSM parameter names (all under PARAMETER_PATH) and fixed client settings
const (
	PARAMETER_PATH        = "/operations"
	DATABASE_RDS_ENDPOINT = "/operations/DATABASE_RDS_ENDPOINT"
	DATABASE_PORT         = "/operations/DATABASE_PORT"
	DATABASE_NAME         = "/operations/DATABASE_NAME"
	DATABASE_USERNAME     = "/operations/DATABASE_USERNAME"
	DATABASE_PASSWORD     = "/operations/DATABASE_PASSWORD"
	SSL_MODE              = "/operations/SSL_MODE"
	ROLE_REGISTRY_BUCKET  = "/operations/ROLE_REGISTRY_BUCKET"
	ROLE_REGISTRY_KEY     = "/operations/ROLE_REGISTRY_KEY"
	COGNITO_USER_POOL_ID  = "/operations/COGNITO_USER_POOL_ID"
	DEFAULT_SIGNUP_ROLE   = "/operations/DEFAULT_SIGNUP_ROLE"
	ALLOWED_ORIGINS       = "/operations/ALLOWED_ORIGINS"
	DRIVER_NAME           = "postgres"
	AWS_REGION            = "us-east-2"
	LOCALSTACK_ENDPOINT   = "http://docker.for.mac.host.internal:4566"
)
