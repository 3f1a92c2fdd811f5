package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Conceptual-Machines/bachgen/internal/config"
	"github.com/Conceptual-Machines/bachgen/internal/database"
	"github.com/Conceptual-Machines/bachgen/internal/metrics"
	"github.com/Conceptual-Machines/bachgen/internal/middleware"
	"github.com/Conceptual-Machines/bachgen/internal/services"
)

func setupRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *metrics.Prometheus) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prom := metrics.NewPrometheus()
	r := SetupRouter(Deps{
		Config:     cfg,
		Composer:   services.NewComposerService(services.WithPrometheus(prom)),
		Prometheus: prom,
		Version:    "test",
	})
	return r, prom
}

func do(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const smallToccata = `{"key":"D minor","seed":5,"total_bars":8,"archetype":"perpetuus"}`

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})
	rec := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["database"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGenerateToccataJSON(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})
	rec := do(r, http.MethodPost, "/api/v1/toccata", smallToccata)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Cached bool `json:"cached"`
		Result struct {
			Form    string `json:"form"`
			Seed    uint32 `json:"seed"`
			Success bool   `json:"success"`
			Tracks  []struct {
				Name string `json:"name"`
			} `json:"tracks"`
			Phases []struct {
				Name string `json:"name"`
			} `json:"phases"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Result.Success)
	assert.Equal(t, "toccata", body.Result.Form)
	assert.Equal(t, uint32(5), body.Result.Seed)
	assert.Len(t, body.Result.Tracks, 3)
	assert.NotEmpty(t, body.Result.Phases)
}

func TestGenerateToccataMIDI(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})
	rec := do(r, http.MethodPost, "/api/v1/toccata?format=midi", smallToccata)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/midi", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "toccata-5.mid")
	assert.Equal(t, "MThd", rec.Body.String()[:4])
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})

	rec := do(r, http.MethodPost, "/api/v1/toccata", `{"seed":1,"total_bars":-3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/goldberg", `{"seed":1,"scale":"epic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/goldberg", `{"form":"toccata"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/toccata", `{"seed":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanListings(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})

	rec := do(r, http.MethodGet, "/api/v1/plan?scale=short", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var goldberg struct {
		Count      int `json:"count"`
		Variations []struct {
			Number int    `json:"number"`
			Type   string `json:"type"`
		} `json:"variations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goldberg))
	assert.Equal(t, 12, goldberg.Count)
	assert.Equal(t, 0, goldberg.Variations[0].Number)

	rec = do(r, http.MethodGet, "/api/v1/plan?form=toccata&archetype=sectionalis&bars=24", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var toccata struct {
		Sections []struct {
			Name string `json:"name"`
			Bars int    `json:"bars"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toccata))
	require.Len(t, toccata.Sections, 5)
	assert.Equal(t, "Cadenza", toccata.Sections[3].Name)

	rec = do(r, http.MethodGet, "/api/v1/plan?form=toccata&archetype=fantasia", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJWTMode(t *testing.T) {
	cfg := &config.Config{AuthMode: "jwt", JWTSecret: "test-secret"}
	r, _ := setupRouter(t, cfg)

	rec := do(r, http.MethodGet, "/api/v1/plan", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/plan", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := middleware.IssueToken("test-secret", "user-1", "u@example.com", "", time.Minute)
	require.NoError(t, err)
	rec = do(r, http.MethodGet, "/api/v1/plan", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	other, err := middleware.IssueToken("other-secret", "user-1", "", "", time.Minute)
	require.NoError(t, err)
	rec = do(r, http.MethodGet, "/api/v1/plan", "", "Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGatewayMode(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "gateway"})
	rec := do(r, http.MethodGet, "/api/v1/plan", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/plan", "", "X-User-ID", "42")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArchiveRoutesNeedADatabase(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})
	rec := do(r, http.MethodGet, "/api/v1/compositions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrometheusEndpoint(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})
	do(r, http.MethodGet, "/health", "")

	rec := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestArchiveRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	r := SetupRouter(Deps{
		Config:   &config.Config{AuthMode: "gateway"},
		DB:       db,
		Composer: services.NewComposerService(services.WithStore(database.NewStore(db))),
	})
	user := []string{"X-User-ID", "7", "X-User-Role", "user"}
	admin := []string{"X-User-ID", "1", "X-User-Role", "admin"}

	rec := do(r, http.MethodPost, "/api/v1/toccata", smallToccata, user...)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = do(r, http.MethodGet, "/api/v1/compositions?form=toccata", "", user...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = do(r, http.MethodGet, "/api/v1/compositions?limit=500", "", user...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/compositions/"+created.ID+"?format=midi", "", user...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MThd", rec.Body.String()[:4])

	rec = do(r, http.MethodDelete, "/api/v1/compositions/"+created.ID, "", user...)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodDelete, "/api/v1/compositions/"+created.ID, "", admin...)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/compositions/"+created.ID, "", user...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"connected"`)
}

func TestAPIMetrics(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{AuthMode: "none"})
	rec := do(r, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Version string `json:"version"`
		API     struct {
			Forms []string `json:"forms"`
		} `json:"api"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, []string{"goldberg", "toccata"}, body.API.Forms)
}
