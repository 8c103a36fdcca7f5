package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/campusbite/orderflow/pkg/db/models"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/pagination"
	"github.com/google/uuid"
)

// Service defines notification list/read operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkAllRead(ctx context.Context, sessionID string) (int64, error)
	Notify(ctx context.Context, notice Notice)
}

// Notice is a user-visible message raised for a session.
type Notice struct {
	SessionID string
	OrderID   string
	Title     string
	Message   string
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	SessionID  string
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	query := listNotificationsParams{
		SessionID:  params.SessionID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.Decode(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = next.Encode()
	}
	if rows == nil {
		rows = []models.Notification{}
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkAllRead(ctx context.Context, sessionID string) (int64, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	count, err := s.repo.MarkAllRead(ctx, sessionID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

// Notify stores a notice. Failures are logged and dropped; a missed notice never
// blocks status tracking.
func (s *service) Notify(ctx context.Context, notice Notice) {
	row := &models.Notification{
		ID:        uuid.New(),
		SessionID: notice.SessionID,
		OrderID:   notice.OrderID,
		Title:     notice.Title,
		Message:   notice.Message,
		CreatedAt: s.now().UTC(),
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"session_id": notice.SessionID,
		"order_id":   notice.OrderID,
	})
	if err := s.repo.Create(ctx, row); err != nil {
		s.logg.Error(logCtx, "failed to store notification", err)
		return
	}
	s.logg.Debug(logCtx, "notification stored")
}
