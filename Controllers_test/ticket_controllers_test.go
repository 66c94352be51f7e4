package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/repository"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.Table{}, &models.Product{}, &models.Ticket{}, &models.TicketItem{})
	require.NoError(t, err)

	db.Create(&models.User{Name: "Staff", Email: t.Name() + "@example.com", Password: "x", Role: "staff"})
	db.Create(&models.Table{TableNumber: "T1", Status: models.TableStatusFree, Seats: 4})
	db.Create(&models.Product{Name: "Nasi Goreng", Price: decimal.NewFromInt(1000), Stock: 100, Active: true})
	db.Create(&models.Product{Name: "Es Teh", Price: decimal.NewFromInt(500), Stock: 100, Active: true})

	logger := logrus.New()
	hub := kds.NewHub(logger)
	repo := repository.NewGormTicketRepository(db)
	registry := services.NewTableRegistry(db)
	totals := services.NewTotalsEngine(decimal.NewFromFloat(0.19), decimal.NewFromFloat(0.10))
	stock := services.NewStockService(db, logger)
	ticketService := services.NewTicketService(repo, registry, totals, stock, events.Fanout{hub}, logger)
	splitService := services.NewSplitMergeService(ticketService)

	r := router.SetupRouter(router.Controllers{
		Tickets:  controllers.NewTicketController(ticketService, splitService),
		Tables:   controllers.NewTableController(db, registry),
		Products: controllers.NewProductController(db),
		Users:    controllers.NewUserController(db),
		KDS:      controllers.NewKDSController(hub),
	})
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, url, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "no data object in response: %s", w.Body.String())
	return data
}

func staffToken(t *testing.T) string {
	t.Helper()
	token, err := utils.GenerateToken(1, "staff")
	require.NoError(t, err)
	return token
}

func TestTicketEndpointsRequireAuth(t *testing.T) {
	r, _ := setupTestServer(t)

	w := doJSON(t, r, "POST", "/api/v1/tickets", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTicketAndAddItems(t *testing.T) {
	r, _ := setupTestServer(t)
	token := staffToken(t)

	w := doJSON(t, r, "POST", "/api/v1/tickets", token, map[string]interface{}{"table_id": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ticketID := int(dataOf(t, w)["id"].(float64))

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/v1/tickets/%d/items", ticketID), token,
		map[string]interface{}{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/v1/tickets/%d/items", ticketID), token,
		map[string]interface{}{"product_id": 2, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, "GET", fmt.Sprintf("/api/v1/tickets/%d", ticketID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "2500", data["subtotal"])
	assert.Equal(t, "475", data["tax"])
	assert.Equal(t, "2975", data["total"])
	assert.Len(t, data["items"], 2)
}

func TestCreateTicketOnOccupiedTable(t *testing.T) {
	r, _ := setupTestServer(t)
	token := staffToken(t)

	w := doJSON(t, r, "POST", "/api/v1/tickets", token, map[string]interface{}{"table_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, "POST", "/api/v1/tickets", token, map[string]interface{}{"table_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TABLE_UNAVAILABLE", resp["code"])
}

func TestSplitAndMergeOverHTTP(t *testing.T) {
	r, _ := setupTestServer(t)
	token := staffToken(t)

	w := doJSON(t, r, "POST", "/api/v1/tickets", token, map[string]interface{}{"table_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	ticketID := int(dataOf(t, w)["id"].(float64))

	var itemIDs []int
	for _, spec := range []map[string]interface{}{
		{"product_id": 1, "quantity": 2},
		{"product_id": 2, "quantity": 1},
	} {
		w = doJSON(t, r, "POST", fmt.Sprintf("/api/v1/tickets/%d/items", ticketID), token, spec)
		require.Equal(t, http.StatusCreated, w.Code)
		itemIDs = append(itemIDs, int(dataOf(t, w)["id"].(float64)))
	}

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/v1/tickets/%d/split/items", ticketID), token,
		map[string]interface{}{"item_ids": []int{itemIDs[1]}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	original := data["original"].(map[string]interface{})
	split := data["split"].(map[string]interface{})
	assert.Equal(t, "2380", original["total"])
	assert.Equal(t, "595", split["total"])

	splitID := int(split["id"].(float64))
	w = doJSON(t, r, "POST", fmt.Sprintf("/api/v1/tickets/%d/merge", ticketID), token,
		map[string]interface{}{"secondary_ids": []int{splitID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	merged := dataOf(t, w)
	assert.Equal(t, "2975", merged["total"])
	assert.Len(t, merged["items"], 2)
}

func TestChangeStateRejectsSkippingClosed(t *testing.T) {
	r, _ := setupTestServer(t)
	token := staffToken(t)

	w := doJSON(t, r, "POST", "/api/v1/tickets", token, map[string]interface{}{"table_id": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	ticketID := int(dataOf(t, w)["id"].(float64))

	w = doJSON(t, r, "PATCH", fmt.Sprintf("/api/v1/tickets/%d/status", ticketID), token,
		map[string]interface{}{"status": "paid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_TRANSITION", resp["code"])
}

func TestTableLifecycleOverHTTP(t *testing.T) {
	r, db := setupTestServer(t)
	token := staffToken(t)

	w := doJSON(t, r, "POST", "/api/v1/tables", token, map[string]interface{}{"table_number": "T9", "seats": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tableID := int(dataOf(t, w)["id"].(float64))

	w = doJSON(t, r, "PATCH", fmt.Sprintf("/api/v1/tables/%d/status", tableID), token,
		map[string]interface{}{"status": "occupied"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var table models.Table
	require.NoError(t, db.First(&table, tableID).Error)
	assert.Equal(t, models.TableStatusOccupied, table.Status)

	w = doJSON(t, r, "GET", "/api/v1/tables/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := dataOf(t, w)
	assert.Equal(t, float64(2), stats["total"])
}
