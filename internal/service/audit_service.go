package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/repository"
)

// AuditEntry captures the details required to append one audit record.
// ActorID is nil for actions performed by the system itself.
type AuditEntry struct {
	ActorID      *uint
	Action       string
	ResourceType string
	ResourceID   *uint
	Details      map[string]interface{}
}

// AuditRecorder appends immutable records to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditService exposes methods to append and query audit records.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit trail service.
func NewAuditService(repo repository.AuditLogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("audit action is required")
	}
	if strings.TrimSpace(entry.ResourceType) == "" {
		return fmt.Errorf("audit resource type is required")
	}

	model := models.AuditLog{
		ActorID:      entry.ActorID,
		Action:       strings.ToLower(strings.TrimSpace(entry.Action)),
		ResourceType: strings.ToLower(strings.TrimSpace(entry.ResourceType)),
		ResourceID:   entry.ResourceID,
		Details:      sanitizeDetails(entry.Details),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to append audit record")
		return storeErr(err)
	}

	return nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	filter := repository.AuditLogFilter{
		Page:         req.Page,
		PageSize:     req.PageSize,
		Action:       strings.TrimSpace(req.Action),
		ResourceType: strings.TrimSpace(req.ResourceType),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditLogListResponse{}, storeErr(err)
	}

	responses := make([]dto.AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditLogResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AuditLogListResponse{Items: responses, Pagination: pagination}, nil
}

// sanitizeDetails masks fields that must not end up in the audit trail.
func sanitizeDetails(details map[string]interface{}) datatypes.JSONMap {
	if details == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range details {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
