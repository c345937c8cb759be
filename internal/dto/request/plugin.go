package request

// SetEnablementRequest asks for a pending enable or disable of one plugin.
type SetEnablementRequest struct {
	Action string `json:"action" binding:"required,oneof=ENABLE DISABLE"`
}
