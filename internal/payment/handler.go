package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"cryptopay/internal/api"
	"cryptopay/internal/auth"
	"cryptopay/internal/oxapay"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BalanceReader is the slice of the user store the payment handlers
// need. Balances are read here but mutated only by the reconcilers.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type Handler struct {
	svc      Service
	balances BalanceReader
}

func NewHandler(svc Service, balances BalanceReader) *Handler {
	return &Handler{svc: svc, balances: balances}
}

type DepositRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Crypto string  `json:"crypto" binding:"required,crypto"`
}

type WithdrawRequest struct {
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Crypto  string  `json:"crypto" binding:"required,crypto"`
	Address string  `json:"address" binding:"required"`
}

// CreateDeposit godoc
// @Summary      Create deposit invoice
// @Description  Creates an OxaPay invoice and a pending deposit transaction.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      DepositRequest  true  "Deposit data"
// @Success      201      {object}  DepositReceipt
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /payments/deposit [post]
func (h *Handler) CreateDeposit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	receipt, err := h.svc.CreateDeposit(c.Request.Context(), userID, decimal.NewFromFloat(req.Amount), req.Crypto)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// CheckDepositStatus godoc
// @Summary      Check deposit status
// @Description  Polls the gateway and reconciles the deposit transaction.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        invoiceID  path      string  true  "Gateway invoice ID"
// @Success      200        {object}  Transaction
// @Failure      404        {object}  api.ErrorResponse
// @Router       /payments/status/{invoiceID} [get]
func (h *Handler) CheckDepositStatus(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	tx, err := h.svc.CheckDepositStatus(c.Request.Context(), userID, c.Param("invoiceID"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// CreateWithdrawal godoc
// @Summary      Create withdrawal
// @Description  Holds the amount, sends an OxaPay payout and records a pending withdrawal.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      WithdrawRequest  true  "Withdrawal data"
// @Success      201      {object}  WithdrawalReceipt
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /payments/withdraw [post]
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	receipt, err := h.svc.CreateWithdrawal(c.Request.Context(), userID, decimal.NewFromFloat(req.Amount), req.Crypto, req.Address)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// CheckWithdrawalStatus godoc
// @Summary      Check withdrawal status
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        transactionID  path      string  true  "Transaction ID"
// @Success      200            {object}  Transaction
// @Failure      404            {object}  api.ErrorResponse
// @Router       /payments/withdraw/{transactionID} [get]
func (h *Handler) CheckWithdrawalStatus(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	tx, err := h.svc.CheckWithdrawalStatus(c.Request.Context(), userID, c.Param("transactionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// GetBalance godoc
// @Summary      Get account balance
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  api.BalanceResponse
// @Router       /payments/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	balance, err := h.balances.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, api.BalanceResponse{
		Balance:  balance.StringFixed(2),
		Currency: "USD",
	})
}

// ListTransactions godoc
// @Summary      Transaction history
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        type    query     string  false  "deposit or withdraw"
// @Param        limit   query     int     false  "Page size"  default(20)
// @Param        offset  query     int     false  "Offset"     default(0)
// @Success      200     {array}   Transaction
// @Router       /payments/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	kind := Kind(c.Query("type"))
	if kind != "" && kind != KindDeposit && kind != KindWithdraw {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "type must be deposit or withdraw"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.svc.ListTransactions(c.Request.Context(), userID, kind, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrUnsupportedAsset),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "transaction not found"})
	case errors.Is(err, oxapay.ErrUnavailable),
		errors.Is(err, oxapay.ErrRejected),
		errors.Is(err, oxapay.ErrBadResponse):
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
	}
}
