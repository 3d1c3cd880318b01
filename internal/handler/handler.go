package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/learnhub/purchase-service/internal/infrastructure/auth"
	"github.com/learnhub/purchase-service/internal/models"
	service "github.com/learnhub/purchase-service/internal/services"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
)

type Handler struct {
	service service.PurchaseService
}

func NewHandler(s service.PurchaseService) *Handler {
	return &Handler{service: s}
}

// errorResponse is the structured error body: {code, message}.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: pkgerrors.Code(err), Message: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP statuses: input errors 404,
// business-rule 402, conflicts 409, infrastructure 503.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrUserNotFound), errors.Is(err, pkgerrors.ErrLessonNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, pkgerrors.ErrPurchaseConflict):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, pkgerrors.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/lessons/{lessonId}/purchase-state", h.GetPurchaseState).Methods("GET")
	r.HandleFunc("/lessons/{lessonId}/purchase", h.PurchaseLesson).Methods("POST")
	r.HandleFunc("/wallet/balance", h.GetBalance).Methods("GET")
	r.HandleFunc("/wallet/history", h.GetTransactionHistory).Methods("GET")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.ErrInvalidInput)
		return
	}

	userID, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			h.writeError(w, http.StatusConflict, err)
		} else if errors.Is(err, pkgerrors.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"user_id": userID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.ErrInvalidInput)
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func lessonIDFromRequest(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["lessonId"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.ErrLessonNotFound
	}
	return id, nil
}

type entitlementResponse struct {
	LessonID  int64     `json:"lessonId"`
	GrantedAt time.Time `json:"grantedAt"`
}

type purchaseResponse struct {
	NewBalance    int64               `json:"newBalance"`
	Entitlement   entitlementResponse `json:"entitlement"`
	TransactionID int64               `json:"transactionId"`
}

func (h *Handler) PurchaseLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}
	lessonID, err := lessonIDFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err)
		return
	}

	result, err := h.service.PurchaseLesson(r.Context(), userID, lessonID)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	h.writeJSON(w, http.StatusOK, purchaseResponse{
		NewBalance: result.NewBalance,
		Entitlement: entitlementResponse{
			LessonID:  result.Entitlement.LessonID,
			GrantedAt: result.Entitlement.GrantedAt,
		},
		TransactionID: result.TransactionID,
	})
}

type purchaseStateResponse struct {
	Balance          int64       `json:"balance"`
	Price            int64       `json:"price"`
	AlreadyPurchased bool        `json:"alreadyPurchased"`
	Role             models.Role `json:"role"`
	State            string      `json:"state"`
	Shortfall        *int64      `json:"shortfall,omitempty"`
}

func (h *Handler) GetPurchaseState(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}
	lessonID, err := lessonIDFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err)
		return
	}

	state, err := h.service.GetPurchaseState(r.Context(), userID, lessonID)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	resp := purchaseStateResponse{
		Balance:          state.Balance,
		Price:            state.Price,
		AlreadyPurchased: state.AlreadyPurchased,
		Role:             state.Role,
		State:            string(state.State),
	}
	if state.State == service.StateInsufficient {
		resp.Shortfall = &state.Shortfall
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	transactions, err := h.service.GetTransactionHistory(r.Context(), userID)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, transactions)
}
