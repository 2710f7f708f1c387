package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gtmhq/gtm-advisor/internal/access"
	"github.com/gtmhq/gtm-advisor/internal/api/dto"
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/repository"
	"github.com/gtmhq/gtm-advisor/internal/service"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

// AnalysisHandler exposes the analysis run endpoints.
type AnalysisHandler struct {
	analysis  *service.AnalysisService
	accounts  *service.AccountService
	companies repository.CompanyRepository
}

// NewAnalysisHandler constructs handler.
func NewAnalysisHandler(analysis *service.AnalysisService, accounts *service.AccountService, companies repository.CompanyRepository) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis, accounts: accounts, companies: companies}
}

// Start handles POST /analysis/runs.
func (h *AnalysisHandler) Start(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.AnalysisRunRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CompanyID == "" || req.Task == "" {
		return fiber.NewError(http.StatusBadRequest, "company_id and task required")
	}

	company, err := h.companies.GetByID(c.Context(), req.CompanyID)
	if err != nil {
		return util.MapError(err)
	}
	if err := access.CheckCompanyAccess(company, identity); err != nil {
		return err
	}

	job, err := h.analysis.Enqueue(c.Context(), req.CompanyID, identity.UserID, identity.Tier, req.Task, req.Agents)
	if err != nil {
		return err
	}

	// Analysis runs count against the account's daily usage.
	_ = h.accounts.IncrementUsage(c.Context(), identity.UserID)

	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": jobResponse(job)})
}

// Get handles GET /analysis/runs/:id.
func (h *AnalysisHandler) Get(c *fiber.Ctx) error {
	job, err := h.analysis.Get(c.Context(), c.Params("id"))
	if err != nil {
		return util.MapError(err)
	}
	if ident, ok := auth.IdentityFromContext(c); !ok || ident.UserID != job.RequestedBy {
		return fiber.NewError(http.StatusForbidden, "run belongs to another account")
	}
	return c.JSON(fiber.Map{"data": jobResponse(job)})
}

// Cancel handles DELETE /analysis/runs/:id.
func (h *AnalysisHandler) Cancel(c *fiber.Ctx) error {
	job, err := h.analysis.Get(c.Context(), c.Params("id"))
	if err != nil {
		return util.MapError(err)
	}
	if ident, ok := auth.IdentityFromContext(c); !ok || ident.UserID != job.RequestedBy {
		return fiber.NewError(http.StatusForbidden, "run belongs to another account")
	}
	if err := h.analysis.Cancel(c.Context(), job.ID); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"cancelling": true}})
}

func jobResponse(job *domain.AnalysisJob) dto.AnalysisJobResponse {
	return dto.AnalysisJobResponse{
		ID:         job.ID,
		CompanyID:  job.CompanyID,
		Status:     string(job.Status),
		Agents:     job.Agents,
		Result:     json.RawMessage(job.Result),
		Error:      job.ErrorMessage,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
}
