package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"tripledger/db/mem"
	"tripledger/expense"
	"tripledger/ledger"
	"tripledger/member"
	"tripledger/mq/goch"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T, isDev bool) (*gin.Engine, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := mem.NewMemoryExpenseStore()
	tripID := uuid.New()
	ctx := context.Background()
	assert.NoError(t, store.AddTripMember(ctx, tripID, ledger.Member{ID: "alice", Name: "Alice", IsOwner: true}))
	assert.NoError(t, store.AddTripMember(ctx, tripID, ledger.Member{ID: "bob", Name: "Bob"}))

	events := goch.NewGoChanExpenseMessageQueueWrapper()
	svc := expense.NewService(store, member.NewStoreProvider(store), events, nil)
	handler := NewHandler(svc, events, nil)

	r := gin.New()
	api := r.Group("/api", AuthMiddleware(testSecret, isDev))
	trips := api.Group("/trips/:tripId")
	trips.GET("/expenses", handler.ListExpenses)
	trips.POST("/expenses", handler.CreateExpense)
	trips.PUT("/expenses/:expenseId", handler.UpdateExpense)
	trips.DELETE("/expenses/:expenseId", handler.DeleteExpense)
	trips.GET("/summary", handler.Summary)
	return r, tripID
}

func doJSON(r *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func expenseBody(amount, currency, paidBy string, split ...string) gin.H {
	return gin.H{
		"description":  "hotel",
		"amount":       amount,
		"currency":     currency,
		"paidBy":       paidBy,
		"splitBetween": split,
		"category":     "accommodation",
		"date":         "2026-08-14",
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	r, tripID := newTestRouter(t, true)
	base := "/api/trips/" + tripID.String()

	w := doJSON(r, http.MethodPost, base+"/expenses", "alice", expenseBody("250.00", "USD", "alice", "alice", "bob"))
	assert.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID     string `json:"id"`
		Amount struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Category string `json:"category"`
		Date     string `json:"date"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "250.00", created.Amount.Amount)
	assert.Equal(t, "USD", created.Amount.Currency)
	assert.Equal(t, "accommodation", created.Category)
	assert.Equal(t, "2026-08-14", created.Date)

	w = doJSON(r, http.MethodGet, base+"/expenses", "bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Expenses []json.RawMessage `json:"expenses"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Expenses, 1)
}

func TestCreateExpenseValidationStatus(t *testing.T) {
	r, tripID := newTestRouter(t, true)
	base := "/api/trips/" + tripID.String()

	w := doJSON(r, http.MethodPost, base+"/expenses", "alice", expenseBody("-5.00", "USD", "alice", "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error string `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid amount", resp.Error)

	w = doJSON(r, http.MethodPost, base+"/expenses", "alice", expenseBody("10.00", "USD", "carol", "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "payer not a trip member", resp.Error)
}

func TestForbiddenAndNotFoundStatus(t *testing.T) {
	r, tripID := newTestRouter(t, true)
	base := "/api/trips/" + tripID.String()

	// carol is not on the trip
	w := doJSON(r, http.MethodGet, base+"/expenses", "carol", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// unknown trip
	w = doJSON(r, http.MethodGet, "/api/trips/"+uuid.NewString()+"/expenses", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// unknown expense on a known trip
	w = doJSON(r, http.MethodDelete, base+"/expenses/"+uuid.NewString(), "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// malformed ids never reach the service
	w = doJSON(r, http.MethodGet, "/api/trips/not-a-uuid/expenses", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	r, tripID := newTestRouter(t, true)
	base := "/api/trips/" + tripID.String()

	w := doJSON(r, http.MethodPost, base+"/expenses", "alice", expenseBody("90.00", "USD", "alice", "alice", "bob"))
	assert.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodPut, base+"/expenses/"+created.ID, "bob", gin.H{"amount": "120.00"})
	assert.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Amount struct {
			Amount string `json:"amount"`
		} `json:"amount"`
		Description string `json:"description"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "120.00", updated.Amount.Amount)
	assert.Equal(t, "hotel", updated.Description)

	w = doJSON(r, http.MethodDelete, base+"/expenses/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodDelete, base+"/expenses/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	r, tripID := newTestRouter(t, true)
	base := "/api/trips/" + tripID.String()

	w := doJSON(r, http.MethodPost, base+"/expenses", "alice", expenseBody("100.00", "USD", "alice", "alice", "bob"))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, base+"/summary", "bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		TotalsByCurrency map[string]struct {
			Amount string `json:"amount"`
		} `json:"totalsByCurrency"`
		UserTotals  []json.RawMessage `json:"userTotals"`
		Settlements []struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Amount struct {
				Amount string `json:"amount"`
			} `json:"amount"`
		} `json:"settlements"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "100.00", summary.TotalsByCurrency["USD"].Amount)
	assert.Len(t, summary.UserTotals, 2)
	assert.Len(t, summary.Settlements, 1)
	assert.Equal(t, "bob", summary.Settlements[0].From)
	assert.Equal(t, "alice", summary.Settlements[0].To)
	assert.Equal(t, "50.00", summary.Settlements[0].Amount.Amount)
}

func TestBearerAuth(t *testing.T) {
	r, tripID := newTestRouter(t, false)
	base := "/api/trips/" + tripID.String()

	// no credentials
	w := doJSON(r, http.MethodGet, base+"/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the dev header is ignored outside dev mode
	w = doJSON(r, http.MethodGet, base+"/expenses", "alice", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, base+"/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// wrong signing secret
	badToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"})
	badSigned, err := badToken.SignedString([]byte("other-secret"))
	assert.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, base+"/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+badSigned)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
