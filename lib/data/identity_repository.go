package data

import (
	"context"
	"errors"
	"fmt"
	"operations/lib/models"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus"
)

const projectIDAttribute = "custom:project_id"

// IdentityRepository looks up users in the identity directory
type IdentityRepository interface {
	// GetActor returns the user with every group they belong to as roles
	GetActor(ctx context.Context, userID string) (*models.Actor, error)

	// ListGroups returns the group names a user belongs to
	ListGroups(ctx context.Context, userID string) ([]string, error)

	// AddToGroup grants a role by adding the user to the group of the same name
	AddToGroup(ctx context.Context, userID string, group string) error
}

// CognitoClientInterface is the subset of the Cognito Identity Provider API the repository uses
type CognitoClientInterface interface {
	AdminGetUser(ctx context.Context, params *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cognitoidentityprovider.AdminListGroupsForUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminListGroupsForUserOutput, error)
	AdminAddUserToGroup(ctx context.Context, params *cognitoidentityprovider.AdminAddUserToGroupInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminAddUserToGroupOutput, error)
}

// IdentityDao implements IdentityRepository against a Cognito user pool
type IdentityDao struct {
	Cognito    CognitoClientInterface
	UserPoolID string
	Logger     *logrus.Logger
}

// GetActor fetches the user's attributes and group memberships
func (dao *IdentityDao) GetActor(ctx context.Context, userID string) (*models.Actor, error) {
	output, err := dao.Cognito.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(dao.UserPoolID),
		Username:   aws.String(userID),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
		}
		dao.Logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Error("Failed to get user from Cognito")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	attributes := make(map[string]string, len(output.UserAttributes))
	for _, attribute := range output.UserAttributes {
		attributes[aws.ToString(attribute.Name)] = aws.ToString(attribute.Value)
	}

	actor := &models.Actor{
		ID:        userID,
		Name:      displayName(attributes),
		Email:     attributes["email"],
		ProjectID: attributes[projectIDAttribute],
	}
	if sub := attributes["sub"]; sub != "" {
		actor.ID = sub
	}

	groups, err := dao.ListGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		actor.Roles = append(actor.Roles, models.RoleName(group))
	}

	dao.Logger.WithFields(logrus.Fields{
		"user_id": actor.ID,
		"roles":   len(actor.Roles),
	}).Debug("Successfully loaded user from Cognito")

	return actor, nil
}

// ListGroups pages through the user's group memberships
func (dao *IdentityDao) ListGroups(ctx context.Context, userID string) ([]string, error) {
	var groups []string
	var nextToken *string

	for {
		output, err := dao.Cognito.AdminListGroupsForUser(ctx, &cognitoidentityprovider.AdminListGroupsForUserInput{
			UserPoolId: aws.String(dao.UserPoolID),
			Username:   aws.String(userID),
			NextToken:  nextToken,
		})
		if err != nil {
			var notFound *types.UserNotFoundException
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
			}
			dao.Logger.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Failed to list Cognito groups for user")
			return nil, fmt.Errorf("failed to list groups: %w", err)
		}

		for _, group := range output.Groups {
			groups = append(groups, aws.ToString(group.GroupName))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return groups, nil
}

// AddToGroup adds the user to an existing Cognito group
func (dao *IdentityDao) AddToGroup(ctx context.Context, userID string, group string) error {
	_, err := dao.Cognito.AdminAddUserToGroup(ctx, &cognitoidentityprovider.AdminAddUserToGroupInput{
		UserPoolId: aws.String(dao.UserPoolID),
		Username:   aws.String(userID),
		GroupName:  aws.String(group),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
		}
		dao.Logger.WithFields(logrus.Fields{
			"user_id": userID,
			"group":   group,
			"error":   err.Error(),
		}).Error("Failed to add user to Cognito group")
		return fmt.Errorf("failed to add user to group: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"user_id": userID,
		"group":   group,
	}).Info("Successfully added user to group")
	return nil
}

func displayName(attributes map[string]string) string {
	if name := attributes["name"]; name != "" {
		return name
	}
	if full := strings.TrimSpace(attributes["given_name"] + " " + attributes["family_name"]); full != "" {
		return full
	}
	return attributes["email"]
}
