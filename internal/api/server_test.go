package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/core"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/events"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *core.OrderBook) {
	t.Helper()
	book, err := core.NewOrderBook(context.Background(), store.NewMemoryStore(), events.NoopPublisher{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewServer(zaptest.NewLogger(t), book, prometheus.NewRegistry()), book
}

func orderBody(sell bool, price string, numItems int64, tokenID string) []byte {
	body := map[string]any{
		"isSellOrder": sell,
		"maker":       "0x1111111111111111111111111111111111111111",
		"numItems":    numItems,
		"startPrice":  price,
		"endPrice":    price,
		"startTime":   0,
		"endTime":     0,
		"items": []map[string]any{
			{
				"collectionAddress": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				"tokenId":           tokenID,
				"quantity":          1,
			},
		},
		"currency": "0x2222222222222222222222222222222222222222",
	}
	b, _ := json.Marshal(body)
	return b
}

func postJSON(t *testing.T, s *Server, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestCreateOrder(t *testing.T) {
	s, book := newTestServer(t)

	w := postJSON(t, s, "/v1/orders", orderBody(true, "1.0", 1, "101"))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.True(t, book.Contains(model.SideSell, model.ListValidActive, resp.ID))
}

func TestCreateOrderDuplicateIsAbsorbed(t *testing.T) {
	s, book := newTestServer(t)

	first := postJSON(t, s, "/v1/orders", orderBody(true, "1.0", 1, "dup"))
	second := postJSON(t, s, "/v1/orders", orderBody(true, "1.0", 1, "dup"))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Len(t, book.Orders(model.SideSell, model.ListValidActive), 1)
}

func TestCreateOrderRejectsBadAddress(t *testing.T) {
	s, _ := newTestServer(t)

	body := orderBody(true, "1.0", 1, "1")
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	m["maker"] = "nope"
	b, _ := json.Marshal(m)

	w := postJSON(t, s, "/v1/orders", b)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, postJSON(t, s, "/v1/orders", orderBody(true, "1.0", 1, "listme")).Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders?side=sell&list=validActive", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Orders []*model.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 1)

	bad := httptest.NewRequest(http.MethodGet, "/v1/orders?side=sell&list=bogus", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteOrder(t *testing.T) {
	s, book := newTestServer(t)
	w := postJSON(t, s, "/v1/orders", orderBody(true, "1.0", 1, "gone"))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/orders/sell/validActive/%s", resp.ID), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, book.Contains(model.SideSell, model.ListValidActive, resp.ID))
}

func TestExecuteMatchEndpoint(t *testing.T) {
	s, book := newTestServer(t)

	require.Equal(t, http.StatusCreated, postJSON(t, s, "/v1/orders", orderBody(true, "1.0", 1, "match-sell")).Code)
	w := postJSON(t, s, "/v1/orders", orderBody(false, "1.0", 1, "match-buy"))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	rec := postJSON(t, s, fmt.Sprintf("/v1/orders/%s/match", resp.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var matchResp struct {
		Matched bool `json:"matched"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matchResp))
	assert.True(t, matchResp.Matched)
	assert.True(t, book.Contains(model.SideBuy, model.ListValidInactive, resp.ID))

	// matching again finds the buy order gone from validActive
	rec = postJSON(t, s, fmt.Sprintf("/v1/orders/%s/match", resp.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matchResp))
	assert.False(t, matchResp.Matched)
}

func TestPreviewMatches(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, postJSON(t, s, "/v1/orders", orderBody(true, "1.0", 1, "pv-sell")).Code)
	require.Equal(t, http.StatusCreated, postJSON(t, s, "/v1/orders", orderBody(false, "1.0", 1, "pv-buy")).Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Matches []*model.MatchResult `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Matches, 1)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
