package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// ComplaintRequest disputes one infraction. The reply goes to Email.
type ComplaintRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Message      string `json:"message" validate:"notblank,max=2000"`
	InfractionID int64  `json:"violation_id" validate:"min=1"`
	AccountID    int64  `json:"account_id" validate:"min=0"`
}

// FileComplaint stores a complaint against an existing record.
func (e *Engine) FileComplaint(ctx context.Context, req ComplaintRequest) (*model.Complaint, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	inf, err := e.store.GetInfraction(ctx, req.InfractionID)
	if err != nil {
		return nil, err
	}

	c := &model.Complaint{
		InfractionID: inf.ID,
		AccountID:    req.AccountID,
		Code:         inf.Code,
		Subject:      inf.Subject,
		Email:        req.Email,
		Message:      req.Message,
		CreatedAt:    e.config.Now().UTC(),
	}
	if err := e.store.CreateComplaint(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to file complaint: %w", err)
	}

	e.logger.Info("filed complaint",
		"id", c.ID,
		"infraction_id", c.InfractionID,
		"subject", c.Subject,
		"code", c.Code)
	return c, nil
}

// Complaints lists complaints, newest first.
func (e *Engine) Complaints(ctx context.Context, filter model.ComplaintFilter) ([]model.Complaint, error) {
	return e.store.ListComplaints(ctx, filter)
}

// ResolveComplaint marks a complaint as handled.
func (e *Engine) ResolveComplaint(ctx context.Context, id int64) error {
	if err := e.store.ResolveComplaint(ctx, id); err != nil {
		return err
	}
	e.logger.Info("resolved complaint", "id", id)
	return nil
}
