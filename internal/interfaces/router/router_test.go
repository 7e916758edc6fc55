package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"savemyfoods-backend/internal/config"
	"savemyfoods-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	mr := miniredis.RunT(t)
	return &config.Config{
		Env:                    "test",
		DatabaseURL:            "sqlite::memory:",
		RedisURL:               "redis://" + mr.Addr(),
		ExpiryAlertWindowHours: 48,
		CronSecret:             "cron",
		HealthAdminKey:         "admin",
	}
}

func TestCreateApp_PurchaseFlow(t *testing.T) {
	app, db, rdb, err := CreateApp(testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, db)
	require.NotNil(t, rdb)

	ctx := context.Background()
	for sid, uid := range map[string]string{"s1": "seller-1", "b1": "buyer-1"} {
		b, _ := json.Marshal(map[string]interface{}{"user": map[string]interface{}{"user_id": uid}})
		require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+sid, b, 0).Err())
	}

	call := func(method, path, sid string, body interface{}) (*http.Response, map[string]interface{}) {
		var buf bytes.Buffer
		if body != nil {
			_ = json.NewEncoder(&buf).Encode(body)
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if sid != "" {
			req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "s:" + sid})
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		var out map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp, out
	}

	resp, out := call("POST", "/api/v1/listings", "s1", map[string]interface{}{
		"title": "Sourdough", "price": 3.5, "quantity": 10, "image_url": "https://img.example.com/sd.jpg",
	})
	require.Equal(t, 201, resp.StatusCode, out)
	id := out["data"].(map[string]interface{})["id"].(string)

	resp, _ = call("POST", "/api/v1/listings/"+id+"/purchase", "b1", map[string]interface{}{"quantity": 4})
	assert.Equal(t, 200, resp.StatusCode)
	resp, _ = call("POST", "/api/v1/listings/"+id+"/purchase", "b1", map[string]interface{}{"quantity": 7})
	assert.Equal(t, 409, resp.StatusCode)

	resp, out = call("GET", "/api/v1/listings/"+id, "", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, float64(6), out["data"].(map[string]interface{})["quantity"])

	resp, out = call("GET", "/api/v1/notifications", "s1", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, out["data"], 1)

	resp, out = call("GET", "/api/v1/listings/"+id+"/events", "s1", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, out["data"].(map[string]interface{})["events"], 2)

	resp, _ = call("POST", "/api/v1/listings", "", map[string]interface{}{"title": "x"})
	assert.Equal(t, 401, resp.StatusCode)
}

func TestCreateApp_WithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = ""
	app, db, _, err := CreateApp(cfg)
	require.NoError(t, err)
	assert.Nil(t, db)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/listings", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestCreateApp_BadRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not-a-url://"
	_, _, _, err := CreateApp(cfg)
	assert.Error(t, err)
}
