package request

// TokenRequest carries admin credentials for token issuance.
type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
