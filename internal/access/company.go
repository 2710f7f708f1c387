// Package access holds resource ownership checks that combine a resolved
// identity with a loaded resource.
package access

import (
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

// CheckCompanyAccess enforces company ownership. Companies with no owner are
// publicly readable. Owned companies require the requester to be the owner:
// anonymous callers get 401, other users get 403, distinguishing "exists but
// not yours" from a missing company id.
func CheckCompanyAccess(company *domain.Company, identity *auth.Identity) error {
	if company.OwnerUserID == nil {
		return nil
	}
	if identity == nil {
		return util.NewUnauthorized("authentication required")
	}
	if *company.OwnerUserID != identity.UserID {
		return util.NewForbidden("company belongs to another account")
	}
	return nil
}
