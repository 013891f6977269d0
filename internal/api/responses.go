package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

type BalanceResponse struct {
	Balance  string `json:"balance" example:"125.50"`
	Currency string `json:"currency" example:"USD"`
}
