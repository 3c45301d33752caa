// internal/service/checkout/infrastructure/adapter/inventory_http_adapter_test.go
package adapter

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"kasir/internal/pkg/httpclient"
	"kasir/internal/service/checkout/port"
)

// staticResolver 把所有服务名解析到同一个测试服务器。
type staticResolver struct {
	host string
	port int
}

func (r staticResolver) Resolve(serviceName string) (string, int, error) {
	return r.host, r.port, nil
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*InventoryHTTPAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	portNum, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client := httpclient.NewClient(otel.Tracer("test"), staticResolver{host: host, port: portNum})
	return NewInventoryHTTPAdapter(client, timeout), server
}

func TestBulkLockStockMapsPerItemResults(t *testing.T) {
	var gotBody bulkStockRequest
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(port.BulkStockResult{
			CheckoutID:   gotBody.CheckoutID,
			AllSuccess:   false,
			FailureCount: 1,
			Results: []port.StockOperationResult{
				{SubSku: "SKU-A", Quantity: 2, Success: true, CurrentStock: 8},
				{SubSku: "SKU-B", Quantity: 1, Success: false, Message: "insufficient stock"},
			},
		})
	}, time.Second)

	items := []port.StockOperationItem{
		{SubSku: "SKU-A", Quantity: 2},
		{SubSku: "SKU-B", Quantity: 1},
	}
	result := adapter.BulkLockStock(context.Background(), "chk-1", items, 900)

	assert.Equal(t, "chk-1", gotBody.CheckoutID)
	assert.Equal(t, int64(900), gotBody.TTLSeconds)
	assert.Len(t, gotBody.Items, 2)

	assert.False(t, result.AllSuccess)
	assert.Equal(t, 1, result.FailureCount)
	resA, ok := result.ResultFor("SKU-A")
	require.True(t, ok)
	assert.True(t, resA.Success)
	assert.Equal(t, int64(8), resA.CurrentStock)
	resB, ok := result.ResultFor("SKU-B")
	require.True(t, ok)
	assert.False(t, resB.Success)
	assert.Equal(t, "insufficient stock", resB.Message)
}

func TestBulkAcquireStockServerErrorFailsClosed(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, time.Second)

	items := []port.StockOperationItem{
		{SubSku: "SKU-A", Quantity: 2},
		{SubSku: "SKU-B", Quantity: 1},
	}
	result := adapter.BulkAcquireStock(context.Background(), "chk-1", items)

	// 整体失败折算成逐条失败
	assert.False(t, result.AllSuccess)
	assert.Equal(t, 2, result.FailureCount)
	require.Len(t, result.Results, 2)
	for _, res := range result.Results {
		assert.False(t, res.Success)
		assert.Equal(t, "inventory service unavailable", res.Message)
	}
}

func TestBulkReleaseStockTimeoutFailsClosed(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 20*time.Millisecond)

	items := []port.StockOperationItem{{SubSku: "SKU-A", Quantity: 1}}
	result := adapter.BulkReleaseStock(context.Background(), "chk-1", items)

	assert.False(t, result.AllSuccess)
	assert.Equal(t, 1, result.FailureCount)
}

func TestBulkCallSurvivesCallerCancellation(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(port.BulkStockResult{CheckoutID: "chk-1", AllSuccess: true})
	}, time.Second)

	// 调用方的 ctx 已经取消，库存操作仍应正常发出
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := adapter.BulkReleaseStock(ctx, "chk-1", []port.StockOperationItem{{SubSku: "SKU-A", Quantity: 1}})
	assert.True(t, result.AllSuccess)
}

func TestGetAvailableStock(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SKU-A", r.URL.Query().Get("subSku"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(availableStockResponse{SubSku: "SKU-A", AvailableStock: 42})
	}, time.Second)

	assert.Equal(t, int64(42), adapter.GetAvailableStock(context.Background(), "SKU-A"))
}

func TestGetAvailableStockFailureReturnsZero(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}, time.Second)

	assert.Zero(t, adapter.GetAvailableStock(context.Background(), "SKU-A"))
}
