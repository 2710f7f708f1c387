package dto

// CompanyCreateRequest payload for registering a company.
type CompanyCreateRequest struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
}

// CompanyResponse is the public view of a company.
type CompanyResponse struct {
	ID          string  `json:"id"`
	OwnerUserID *string `json:"owner_user_id,omitempty"`
	Name        string  `json:"name"`
	Domain      string  `json:"domain"`
	Industry    string  `json:"industry"`
	Description string  `json:"description"`
}
