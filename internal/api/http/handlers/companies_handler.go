package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gtmhq/gtm-advisor/internal/access"
	"github.com/gtmhq/gtm-advisor/internal/api/dto"
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/repository"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

// CompaniesHandler exposes the minimal company surface the access-control
// model needs; the broader CRUD boards live elsewhere.
type CompaniesHandler struct {
	companies repository.CompanyRepository
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(companies repository.CompanyRepository) *CompaniesHandler {
	return &CompaniesHandler{companies: companies}
}

// Create handles POST /companies. The company is owned by the caller.
func (h *CompaniesHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.CompanyCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "name required")
	}

	owner := identity.UserID
	company := &domain.Company{
		OwnerUserID: &owner,
		Name:        req.Name,
		Domain:      req.Domain,
		Industry:    req.Industry,
		Description: req.Description,
	}
	if err := h.companies.Create(c.Context(), company); err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": companyResponse(company)})
}

// ListMine handles GET /companies: the caller's portfolio.
func (h *CompaniesHandler) ListMine(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	companies, err := h.companies.ListByOwner(c.Context(), identity.UserID)
	if err != nil {
		return err
	}
	out := make([]dto.CompanyResponse, 0, len(companies))
	for _, company := range companies {
		out = append(out, companyResponse(company))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /companies/:id. Unowned companies are public; owned ones
// require the owner's identity.
func (h *CompaniesHandler) Get(c *fiber.Ctx) error {
	company, err := h.companies.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return util.MapError(err)
	}

	identity, _ := auth.IdentityFromContext(c)
	if err := access.CheckCompanyAccess(company, identity); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponse(company)})
}

func companyResponse(company *domain.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:          company.ID,
		OwnerUserID: company.OwnerUserID,
		Name:        company.Name,
		Domain:      company.Domain,
		Industry:    company.Industry,
		Description: company.Description,
	}
}
