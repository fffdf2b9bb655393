package data

import (
	"context"
	"errors"
	"io"
	"operations/lib/models"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockS3Client struct {
	Body  string
	Err   error
	Input *s3.GetObjectInput
}

func (m *MockS3Client) GetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.Input = input
	if m.Err != nil {
		return nil, m.Err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(m.Body))}, nil
}

func Test_LoadRegistry_FromS3(t *testing.T) {
	//Arrange
	mock := &MockS3Client{Body: `
roles:
  reviewer:
    level: 5
    inherits: [ghost]
    permissions: [manage_pricing]
`}
	dao := &RoleConfigDao{S3: mock, Bucket: "ops-config", Key: "rbac/roles.yaml", Logger: quietLogger()}

	//Act
	registry, err := dao.LoadRegistry(context.Background())

	//Assert
	require.NoError(t, err)
	assert.Equal(t, "ops-config", aws.ToString(mock.Input.Bucket))
	assert.Equal(t, "rbac/roles.yaml", aws.ToString(mock.Input.Key))
	role, ok := registry.Role("reviewer")
	require.True(t, ok)
	assert.Equal(t, []models.Grant{models.Exact(models.ManagePricing)}, role.Grants)
	assert.Len(t, registry.Validate(), 1, "unknown inherited role is reported, not fatal")
}

func Test_LoadRegistry_EmbeddedWhenUnconfigured(t *testing.T) {
	dao := &RoleConfigDao{Logger: quietLogger()}

	registry, err := dao.LoadRegistry(context.Background())

	require.NoError(t, err)
	assert.True(t, registry.Has(models.RoleSuperAdmin))
}

func Test_LoadRegistry_S3Failure(t *testing.T) {
	dao := &RoleConfigDao{S3: &MockS3Client{Err: errors.New("AccessDenied")}, Bucket: "b", Key: "k", Logger: quietLogger()}

	_, err := dao.LoadRegistry(context.Background())

	assert.ErrorContains(t, err, "failed to fetch role registry")
}

func Test_LoadRegistry_MalformedObject(t *testing.T) {
	dao := &RoleConfigDao{S3: &MockS3Client{Body: "roles: ["}, Bucket: "b", Key: "k", Logger: quietLogger()}

	_, err := dao.LoadRegistry(context.Background())

	assert.ErrorContains(t, err, "failed to parse role registry")
}
