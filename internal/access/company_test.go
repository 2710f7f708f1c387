package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

func TestUnownedCompanyIsPublic(t *testing.T) {
	company := &domain.Company{ID: "c1"}

	assert.NoError(t, CheckCompanyAccess(company, nil))
	assert.NoError(t, CheckCompanyAccess(company, &auth.Identity{UserID: "u1"}))
}

func TestOwnedCompanyRequiresIdentity(t *testing.T) {
	owner := "u1"
	company := &domain.Company{ID: "c1", OwnerUserID: &owner}

	err := CheckCompanyAccess(company, nil)
	require.Error(t, err)
	assert.Equal(t, 401, util.ToDomainError(err).HTTPStatus)
}

func TestOwnedCompanyRejectsOtherUsers(t *testing.T) {
	owner := "u1"
	company := &domain.Company{ID: "c1", OwnerUserID: &owner}

	err := CheckCompanyAccess(company, &auth.Identity{UserID: "u2"})
	require.Error(t, err)
	// Forbidden, not not-found: the resource exists but is not theirs.
	assert.Equal(t, 403, util.ToDomainError(err).HTTPStatus)
}

func TestOwnedCompanyAllowsOwner(t *testing.T) {
	owner := "u1"
	company := &domain.Company{ID: "c1", OwnerUserID: &owner}

	assert.NoError(t, CheckCompanyAccess(company, &auth.Identity{UserID: "u1"}))
}
