package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"operations/lib/models"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ApprovalRepository is the persistence interface behind the approval request store
type ApprovalRepository interface {
	// LoadAll returns every approval request, oldest first
	LoadAll(ctx context.Context) ([]models.ApprovalRequest, error)

	// LoadActions returns the whole audit trail, oldest first
	LoadActions(ctx context.Context) ([]models.ApprovalAction, error)

	// Save inserts a newly created request
	Save(ctx context.Context, request *models.ApprovalRequest) error

	// Resolve moves a pending request to its terminal status and appends the
	// action recording it, atomically. Returns models.ErrInvalidState when the
	// stored request is no longer pending.
	Resolve(ctx context.Context, request *models.ApprovalRequest, action *models.ApprovalAction) error
}

// ApprovalDao implements ApprovalRepository interface using PostgreSQL
type ApprovalDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const approvalColumns = `
	id, type, title, description, requested_by, requested_by_name, requested_at,
	status, approver, approver_name, approved_at, rejection_reason,
	metadata, priority, required_permissions, project_id`

// LoadAll returns every approval request ordered by creation time
func (dao *ApprovalDao) LoadAll(ctx context.Context) ([]models.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + `
		FROM ops.approval_request
		ORDER BY requested_at ASC, id ASC
	`

	rows, err := dao.DB.QueryContext(ctx, query)
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to query approval requests")
		return nil, fmt.Errorf("failed to query approval requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ApprovalRequest
	for rows.Next() {
		request, err := scanApprovalRequest(rows)
		if err != nil {
			dao.Logger.WithError(err).Error("Failed to scan approval request row")
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}
		requests = append(requests, *request)
	}

	if err = rows.Err(); err != nil {
		dao.Logger.WithError(err).Error("Error iterating approval request rows")
		return nil, fmt.Errorf("error iterating approval requests: %w", err)
	}

	dao.Logger.WithField("count", len(requests)).Debug("Successfully loaded approval requests")
	return requests, nil
}

// LoadActions returns the audit trail ordered by time of the action
func (dao *ApprovalDao) LoadActions(ctx context.Context) ([]models.ApprovalAction, error) {
	query := `
		SELECT id, request_id, action, performed_by, performed_by_name, performed_at, reason
		FROM ops.approval_action
		ORDER BY performed_at ASC, id ASC
	`

	rows, err := dao.DB.QueryContext(ctx, query)
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to query approval actions")
		return nil, fmt.Errorf("failed to query approval actions: %w", err)
	}
	defer rows.Close()

	var actions []models.ApprovalAction
	for rows.Next() {
		var action models.ApprovalAction
		var reason sql.NullString
		err := rows.Scan(
			&action.ID,
			&action.RequestID,
			&action.Action,
			&action.PerformedBy,
			&action.PerformedByName,
			&action.Timestamp,
			&reason,
		)
		if err != nil {
			dao.Logger.WithError(err).Error("Failed to scan approval action row")
			return nil, fmt.Errorf("failed to scan approval action: %w", err)
		}
		action.Reason = reason.String
		actions = append(actions, action)
	}

	if err = rows.Err(); err != nil {
		dao.Logger.WithError(err).Error("Error iterating approval action rows")
		return nil, fmt.Errorf("error iterating approval actions: %w", err)
	}

	return actions, nil
}

// Save inserts a newly created approval request
func (dao *ApprovalDao) Save(ctx context.Context, request *models.ApprovalRequest) error {
	metadata, err := marshalMetadata(request.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal approval metadata: %w", err)
	}

	_, err = dao.DB.ExecContext(ctx, `
		INSERT INTO ops.approval_request (`+approvalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		request.ID,
		request.Type,
		request.Title,
		request.Description,
		request.RequestedBy,
		request.RequestedByName,
		request.RequestedAt,
		request.Status,
		nullString(request.Approver),
		nullString(request.ApproverName),
		nullTime(request.ApprovedAt),
		nullString(request.RejectionReason),
		metadata,
		request.Priority,
		pq.Array(permissionStrings(request.RequiredPermissions)),
		nullString(request.ProjectID),
	)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"request_id": request.ID,
			"type":       request.Type,
			"error":      err.Error(),
		}).Error("Failed to insert approval request")
		return fmt.Errorf("failed to insert approval request: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"request_id":   request.ID,
		"type":         request.Type,
		"requested_by": request.RequestedBy,
	}).Info("Successfully created approval request")

	return nil
}

// Resolve applies the terminal transition only if the row is still pending,
// so concurrent reviewers in different processes cannot both win.
func (dao *ApprovalDao) Resolve(ctx context.Context, request *models.ApprovalRequest, action *models.ApprovalAction) error {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to start transaction for approval resolution")
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE ops.approval_request
		SET status = $2, approver = $3, approver_name = $4, approved_at = $5, rejection_reason = $6
		WHERE id = $1 AND status = 'pending'
	`,
		request.ID,
		request.Status,
		nullString(request.Approver),
		nullString(request.ApproverName),
		nullTime(request.ApprovedAt),
		nullString(request.RejectionReason),
	)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"request_id": request.ID,
			"status":     request.Status,
			"error":      err.Error(),
		}).Error("Failed to update approval request status")
		return fmt.Errorf("failed to update approval request: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		dao.Logger.WithField("request_id", request.ID).Warn("Approval request was resolved concurrently")
		return fmt.Errorf("%w: %s", models.ErrInvalidState, request.ID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ops.approval_action (id, request_id, action, performed_by, performed_by_name, performed_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		action.ID,
		action.RequestID,
		action.Action,
		action.PerformedBy,
		action.PerformedByName,
		action.Timestamp,
		nullString(action.Reason),
	)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"request_id": request.ID,
			"action_id":  action.ID,
			"error":      err.Error(),
		}).Error("Failed to append approval action")
		return fmt.Errorf("failed to append approval action: %w", err)
	}

	if err = tx.Commit(); err != nil {
		dao.Logger.WithError(err).Error("Failed to commit approval resolution transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"request_id": request.ID,
		"status":     request.Status,
		"actor":      action.PerformedBy,
	}).Info("Successfully resolved approval request")

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApprovalRequest(row rowScanner) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	var approver, approverName, rejectionReason, projectID sql.NullString
	var approvedAt sql.NullTime
	var metadata []byte
	var required pq.StringArray

	err := row.Scan(
		&request.ID,
		&request.Type,
		&request.Title,
		&request.Description,
		&request.RequestedBy,
		&request.RequestedByName,
		&request.RequestedAt,
		&request.Status,
		&approver,
		&approverName,
		&approvedAt,
		&rejectionReason,
		&metadata,
		&request.Priority,
		&required,
		&projectID,
	)
	if err != nil {
		return nil, err
	}

	request.Approver = approver.String
	request.ApproverName = approverName.String
	request.RejectionReason = rejectionReason.String
	request.ProjectID = projectID.String
	if approvedAt.Valid {
		at := approvedAt.Time
		request.ApprovedAt = &at
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &request.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approval metadata: %w", err)
		}
	}
	for _, p := range required {
		request.RequiredPermissions = append(request.RequiredPermissions, models.Permission(p))
	}
	// Rows written outside the engine may lack reviewer permissions
	if len(request.RequiredPermissions) == 0 {
		if p, ok := request.Type.DefaultReviewerPermission(); ok {
			request.RequiredPermissions = []models.Permission{p}
		}
	}

	return &request, nil
}

// marshalMetadata encodes metadata as text; lib/pq sends []byte parameters as bytea
func marshalMetadata(metadata map[string]interface{}) (sql.NullString, error) {
	if metadata == nil {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func permissionStrings(perms []models.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
