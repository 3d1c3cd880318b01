package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/learnhub/purchase-service/internal/handler"
	"github.com/learnhub/purchase-service/internal/infrastructure/auth"
	"github.com/learnhub/purchase-service/internal/models"
	service "github.com/learnhub/purchase-service/internal/services"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// PurchaseServiceMock stubs the service layer for handler tests.
type PurchaseServiceMock struct {
	mock.Mock
}

func (m *PurchaseServiceMock) Register(ctx context.Context, username, password string) (int64, error) {
	ret := m.Called(ctx, username, password)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *PurchaseServiceMock) Login(ctx context.Context, username, password string) (string, error) {
	ret := m.Called(ctx, username, password)
	return ret.String(0), ret.Error(1)
}

func (m *PurchaseServiceMock) PurchaseLesson(ctx context.Context, userID, lessonID int64) (*service.PurchaseResult, error) {
	ret := m.Called(ctx, userID, lessonID)
	var r0 *service.PurchaseResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.PurchaseResult)
	}
	return r0, ret.Error(1)
}

func (m *PurchaseServiceMock) GetPurchaseState(ctx context.Context, userID, lessonID int64) (*service.PurchaseState, error) {
	ret := m.Called(ctx, userID, lessonID)
	var r0 *service.PurchaseState
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.PurchaseState)
	}
	return r0, ret.Error(1)
}

func (m *PurchaseServiceMock) GetBalance(ctx context.Context, userID int64) (int64, error) {
	ret := m.Called(ctx, userID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *PurchaseServiceMock) GetTransactionHistory(ctx context.Context, userID int64) ([]models.Transaction, error) {
	ret := m.Called(ctx, userID)
	var r0 []models.Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Transaction)
	}
	return r0, ret.Error(1)
}

func protectedRouter(svc service.PurchaseService) *mux.Router {
	r := mux.NewRouter()
	h := handler.NewHandler(svc)
	h.RegisterProtectedRoutes(r)
	return r
}

func authedRequest(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), auth.ContextUserID, userID)
	return req.WithContext(ctx)
}

func TestPurchaseLesson_HTTP(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		grantedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		svc.On("PurchaseLesson", mock.Anything, int64(1), int64(2)).Return(&service.PurchaseResult{
			NewBalance:    0,
			TransactionID: 7,
			Entitlement:   &models.Entitlement{LessonID: 2, TransactionID: 7, GrantedAt: grantedAt},
		}, nil)

		rr := httptest.NewRecorder()
		protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodPost, "/lessons/2/purchase", 1))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			NewBalance  int64 `json:"newBalance"`
			Entitlement struct {
				LessonID  int64     `json:"lessonId"`
				GrantedAt time.Time `json:"grantedAt"`
			} `json:"entitlement"`
			TransactionID int64 `json:"transactionId"`
		}
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, int64(0), resp.NewBalance)
		assert.Equal(t, int64(2), resp.Entitlement.LessonID)
		assert.Equal(t, grantedAt, resp.Entitlement.GrantedAt)
		assert.Equal(t, int64(7), resp.TransactionID)
	})

	errCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"InsufficientBalance", pkgerrors.ErrInsufficientBalance, http.StatusPaymentRequired, "InsufficientBalance"},
		{"UserNotFound", pkgerrors.ErrUserNotFound, http.StatusNotFound, "UserNotFound"},
		{"LessonNotFound", pkgerrors.ErrLessonNotFound, http.StatusNotFound, "LessonNotFound"},
		{"Conflict", pkgerrors.ErrPurchaseConflict, http.StatusConflict, "ConcurrentModificationConflict"},
		{"StoreUnavailable", pkgerrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "StoreUnavailable"},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(PurchaseServiceMock)
			svc.On("PurchaseLesson", mock.Anything, int64(1), int64(2)).Return(nil, tc.err)

			rr := httptest.NewRecorder()
			protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodPost, "/lessons/2/purchase", 1))

			assert.Equal(t, tc.wantStatus, rr.Code)
			var resp struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("BadLessonID", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		rr := httptest.NewRecorder()
		protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodPost, "/lessons/abc/purchase", 1))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		svc.AssertNotCalled(t, "PurchaseLesson", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/lessons/2/purchase", nil)
		protectedRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestGetPurchaseState_HTTP(t *testing.T) {
	t.Run("Insufficient", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		svc.On("GetPurchaseState", mock.Anything, int64(1), int64(2)).Return(&service.PurchaseState{
			Balance:   50,
			Price:     100,
			Role:      models.RoleUser,
			State:     service.StateInsufficient,
			Shortfall: 50,
		}, nil)

		rr := httptest.NewRecorder()
		protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodGet, "/lessons/2/purchase-state", 1))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "insufficient", resp["state"])
		assert.Equal(t, float64(50), resp["shortfall"])
		assert.Equal(t, float64(50), resp["balance"])
		assert.Equal(t, float64(100), resp["price"])
		assert.Equal(t, false, resp["alreadyPurchased"])
		assert.Equal(t, "USER", resp["role"])
	})

	t.Run("AffordableOmitsShortfall", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		svc.On("GetPurchaseState", mock.Anything, int64(1), int64(2)).Return(&service.PurchaseState{
			Balance: 200,
			Price:   100,
			Role:    models.RoleUser,
			State:   service.StateAffordable,
		}, nil)

		rr := httptest.NewRecorder()
		protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodGet, "/lessons/2/purchase-state", 1))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "affordable", resp["state"])
		_, hasShortfall := resp["shortfall"]
		assert.False(t, hasShortfall)
	})

	t.Run("AdminAlwaysUnlocked", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		svc.On("GetPurchaseState", mock.Anything, int64(1), int64(2)).Return(&service.PurchaseState{
			Balance: 0,
			Price:   9999,
			Role:    models.RoleSuperAdmin,
			State:   service.StateAlwaysUnlocked,
		}, nil)

		rr := httptest.NewRecorder()
		protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodGet, "/lessons/2/purchase-state", 1))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "always-unlocked", resp["state"])
		assert.Equal(t, "SUPER_ADMIN", resp["role"])
	})
}

func TestWalletEndpoints_HTTP(t *testing.T) {
	t.Run("Balance", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		svc.On("GetBalance", mock.Anything, int64(1)).Return(int64(250), nil)

		rr := httptest.NewRecorder()
		protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodGet, "/wallet/balance", 1))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"balance":250}`, rr.Body.String())
	})

	t.Run("EmptyHistoryIsArray", func(t *testing.T) {
		svc := new(PurchaseServiceMock)
		svc.On("GetTransactionHistory", mock.Anything, int64(1)).Return(nil, nil)

		rr := httptest.NewRecorder()
		protectedRouter(svc).ServeHTTP(rr, authedRequest(http.MethodGet, "/wallet/history", 1))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})
}
