package payment

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cryptopay/internal/oxapay"
)

type MockService struct{ mock.Mock }

func (m *MockService) CreateDeposit(ctx context.Context, userID string, amount decimal.Decimal, asset string) (*DepositReceipt, error) {
	args := m.Called(ctx, userID, amount, asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DepositReceipt), args.Error(1)
}

func (m *MockService) CheckDepositStatus(ctx context.Context, userID, invoiceID string) (*Transaction, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockService) CreateWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, asset, address string) (*WithdrawalReceipt, error) {
	args := m.Called(ctx, userID, amount, asset, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WithdrawalReceipt), args.Error(1)
}

func (m *MockService) CheckWithdrawalStatus(ctx context.Context, userID, transactionID string) (*Transaction, error) {
	args := m.Called(ctx, userID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockService) HandleGatewayEvent(ctx context.Context, ev Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockService) ListTransactions(ctx context.Context, userID string, kind Kind, limit, offset int) ([]Transaction, error) {
	args := m.Called(ctx, userID, kind, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

type fakeBalances struct {
	balance decimal.Decimal
	err     error
}

func (f *fakeBalances) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return f.balance, f.err
}

func stubAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func setupPaymentRouter(svc Service, balances BalanceReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, balances)
	r := gin.New()

	g := r.Group("/payments")
	g.Use(stubAuth("user-1"))
	{
		g.POST("/deposit", h.CreateDeposit)
		g.GET("/status/:invoiceID", h.CheckDepositStatus)
		g.POST("/withdraw", h.CreateWithdrawal)
		g.GET("/withdraw/:transactionID", h.CheckWithdrawalStatus)
		g.GET("/balance", h.GetBalance)
		g.GET("/transactions", h.ListTransactions)
	}
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateDepositHandler_Success(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	svc.On("CreateDeposit", mock.Anything, "user-1", mock.Anything, "USDT").
		Return(&DepositReceipt{
			TransactionID: "tx-1",
			InvoiceID:     "inv-1",
			PayAddress:    "TAddr",
			Asset:         "USDT",
			Status:        StatusPending,
		}, nil)

	w := postJSON(r, "/payments/deposit", `{"amount": 10, "crypto": "USDT"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "TAddr")
}

func TestCreateDepositHandler_BindingError(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	w := postJSON(r, "/payments/deposit", `{"crypto": "USDT"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateDeposit")
}

func TestCreateDepositHandler_UnknownAssetRejectedAtBinding(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	w := postJSON(r, "/payments/deposit", `{"amount": 10, "crypto": "DOGE"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateDeposit")
}

func TestCreateDepositHandler_AmountBelowMinimum(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	svc.On("CreateDeposit", mock.Anything, "user-1", mock.Anything, "USDT").
		Return(nil, ErrInvalidAmount)

	w := postJSON(r, "/payments/deposit", `{"amount": 0.3, "crypto": "USDT"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateDepositHandler_GatewayDown(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	svc.On("CreateDeposit", mock.Anything, "user-1", mock.Anything, "USDT").
		Return(nil, oxapay.ErrUnavailable)

	w := postJSON(r, "/payments/deposit", `{"amount": 10, "crypto": "USDT"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCheckDepositStatusHandler_NotFound(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	svc.On("CheckDepositStatus", mock.Anything, "user-1", "missing").
		Return(nil, ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/status/missing", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateWithdrawalHandler_InsufficientFunds(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	svc.On("CreateWithdrawal", mock.Anything, "user-1", mock.Anything, "USDT", "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8").
		Return(nil, ErrInsufficientFunds)

	w := postJSON(r, "/payments/withdraw",
		`{"amount": 100, "crypto": "USDT", "address": "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient balance")
}

func TestGetBalanceHandler(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{balance: decimal.NewFromFloat(125.5)})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/balance", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"125.50"`)
	assert.Contains(t, w.Body.String(), `"USD"`)
}

func TestListTransactionsHandler_BadType(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/transactions?type=bogus", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ListTransactions")
}

func TestListTransactionsHandler_Defaults(t *testing.T) {
	svc := new(MockService)
	r := setupPaymentRouter(svc, &fakeBalances{})

	svc.On("ListTransactions", mock.Anything, "user-1", Kind(""), 20, 0).
		Return([]Transaction{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/transactions", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
