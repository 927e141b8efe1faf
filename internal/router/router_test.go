package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/cache"
	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/provider"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type routerFixture struct {
	engine *gin.Engine
	db     *gorm.DB
	item   *models.DeliveryItem
}

func setupRouterTest(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "debug"},
		JWT:       config.JWTConfig{SecretKey: "router-test-secret", ExpireHours: 1},
		Storage:   config.StorageConfig{Driver: "local", LocalDir: t.TempDir(), PublicBaseURL: "/uploads"},
		Upload:    config.UploadConfig{MaxSize: 1 << 20, AllowedTypes: []string{"image/png", "image/jpeg"}, MaxWidth: 4096, MaxHeight: 4096, MaxPhotos: 4},
		Delivery:  config.DeliveryConfig{Timezone: "UTC", PersistRetryAttempts: 2},
		Reconcile: config.ReconcileConfig{BatchSize: 10, MaxAttempts: 5},
	}
	container := provider.NewContainer(cfg)

	seedUser(t, db, "planner", constants.RoleStaff)
	driver := seedUser(t, db, "driver1", constants.RoleDriver)

	rental := &models.Rental{RentalNo: "RNT-2026-0042", ProposalID: 42, CustomerName: "Kule Insaat"}
	if err := db.Create(rental).Error; err != nil {
		t.Fatalf("create rental failed: %v", err)
	}
	planned := time.Now().UTC()
	item := &models.DeliveryItem{
		RentalID:     rental.ID,
		MachineLabel: "Genie S-65",
		Delivery: models.DeliveryLeg{
			Status:      constants.DeliveryStatusPlanned,
			DriverID:    &driver.ID,
			PlannedDate: &planned,
		},
		Return: models.DeliveryLeg{Status: constants.ReturnStatusNone},
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create item failed: %v", err)
	}
	return &routerFixture{engine: SetupRouter(cfg, container), db: db, item: item}
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	hash, err := service.HashPassword("Sofor!2026")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	user := &models.User{Username: username, DisplayName: username, PasswordHash: hash, Role: role, Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	// 各用例的内存库主键会重复，清掉进程内缓存的鉴权状态
	_ = cache.DelAuthState(context.Background(), user.ID)
	return user
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string) envelope {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: unmarshal failed: %v body=%s", method, path, err, w.Body.String())
	}
	return resp
}

func (f *routerFixture) login(t *testing.T, username string) string {
	t.Helper()
	body := bytes.NewBufferString(fmt.Sprintf(`{"username":%q,"password":"Sofor!2026"}`, username))
	resp := f.do(t, http.MethodPost, "/api/v1/auth/login", "", body, "application/json")
	if resp.StatusCode != 0 {
		t.Fatalf("login %s failed: %d %s", username, resp.StatusCode, resp.Msg)
	}
	var pair struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &pair); err != nil || pair.Token == "" {
		t.Fatalf("login response has no token: %s", string(resp.Data))
	}
	return pair.Token
}

func TestDriverRoutesEndToEnd(t *testing.T) {
	f := setupRouterTest(t)
	token := f.login(t, "driver1")

	resp := f.do(t, http.MethodGet, "/api/v1/driver/tasks", token, nil, "")
	if resp.StatusCode != 0 {
		t.Fatalf("task board failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var board service.TaskBoard
	if err := json.Unmarshal(resp.Data, &board); err != nil {
		t.Fatalf("unmarshal board failed: %v", err)
	}
	if len(board.Today) != 1 || board.Today[0].ItemID != f.item.ID {
		t.Fatalf("planned task should be in today bucket, got %+v", board)
	}

	// 未出发不能完工
	form, contentType := completionForm(t)
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/driver/tasks/%d/delivery/complete", f.item.ID), token, form, contentType)
	if resp.StatusCode != 409 {
		t.Fatalf("complete before start want 409 got %d %s", resp.StatusCode, resp.Msg)
	}

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/driver/tasks/%d/delivery/start", f.item.ID), token, nil, "")
	if resp.StatusCode != 0 {
		t.Fatalf("start failed: %d %s", resp.StatusCode, resp.Msg)
	}

	form, contentType = completionForm(t)
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/driver/tasks/%d/delivery/complete", f.item.ID), token, form, contentType)
	if resp.StatusCode != 0 {
		t.Fatalf("complete failed: %d %s %s", resp.StatusCode, resp.Msg, string(resp.Data))
	}

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/driver/tasks/%d/delivery/record", f.item.ID), token, nil, "")
	if resp.StatusCode != 0 {
		t.Fatalf("record failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var record models.CompletionRecord
	if err := json.Unmarshal(resp.Data, &record); err != nil {
		t.Fatalf("unmarshal record failed: %v", err)
	}
	if record.PersonName != "Ali Veli" || record.HourMeter.String() != "1250.5" || record.FuelLevel != 75 {
		t.Fatalf("unexpected record: %+v", record)
	}

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/driver/tasks/%d/return/record", f.item.ID), token, nil, "")
	if resp.StatusCode != 404 {
		t.Fatalf("return record should be 404 before return, got %d", resp.StatusCode)
	}
}

func TestCompletionValidationErrorCarriesCode(t *testing.T) {
	f := setupRouterTest(t)
	token := f.login(t, "driver1")
	f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/driver/tasks/%d/delivery/start", f.item.ID), token, nil, "")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("person_name", "Ali Veli")
	_ = writer.WriteField("conditions", constants.ConditionNoDamage)
	_ = writer.Close()

	resp := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/driver/tasks/%d/delivery/complete", f.item.ID), token, body, writer.FormDataContentType())
	if resp.StatusCode != 400 {
		t.Fatalf("missing hour meter want 400 got %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Data), "missing_hour_meter") {
		t.Fatalf("response should carry validation code, got %s", string(resp.Data))
	}
}

func TestDirectionAndConditionValidators(t *testing.T) {
	f := setupRouterTest(t)
	token := f.login(t, "driver1")

	resp := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/driver/tasks/%d/pickup/start", f.item.ID), token, nil, "")
	if resp.StatusCode != 400 {
		t.Fatalf("unknown direction want 400 got %d", resp.StatusCode)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("hour_meter", "10")
	_ = writer.WriteField("person_name", "Ali Veli")
	_ = writer.WriteField("conditions", "BROKEN_MIRROR")
	_ = writer.Close()
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/driver/tasks/%d/delivery/complete", f.item.ID), token, body, writer.FormDataContentType())
	if resp.StatusCode != 400 || !strings.Contains(string(resp.Data), "unknown_condition_tag") {
		t.Fatalf("unknown condition tag want 400 unknown_condition_tag, got %d %s", resp.StatusCode, string(resp.Data))
	}
}

func TestRBACSeparatesDriverAndStaff(t *testing.T) {
	f := setupRouterTest(t)
	driverToken := f.login(t, "driver1")
	staffToken := f.login(t, "planner")

	if resp := f.do(t, http.MethodGet, "/api/v1/admin/delivery-items", driverToken, nil, ""); resp.StatusCode != 403 {
		t.Fatalf("driver on admin route want 403 got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/admin/delivery-items", staffToken, nil, ""); resp.StatusCode != 0 {
		t.Fatalf("staff list want 0 got %d %s", resp.StatusCode, resp.Msg)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/driver/tasks", staffToken, nil, ""); resp.StatusCode != 403 {
		t.Fatalf("staff on driver route want 403 got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/admin/audit-logs", staffToken, nil, ""); resp.StatusCode != 403 {
		t.Fatalf("audit logs are admin only, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := setupRouterTest(t)
	token := f.login(t, "driver1")

	if resp := f.do(t, http.MethodGet, "/api/v1/me", token, nil, ""); resp.StatusCode != 0 {
		t.Fatalf("me want 0 got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil, ""); resp.StatusCode != 0 {
		t.Fatalf("logout want 0 got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/me", token, nil, ""); resp.StatusCode != 401 {
		t.Fatalf("revoked token want 401 got %d", resp.StatusCode)
	}
}

func completionForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"hour_meter":  "1250.5",
		"fuel_level":  "75",
		"person_name": "Ali Veli",
		"gps_lat":     "41.0082",
		"gps_lng":     "28.9784",
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field failed: %v", err)
		}
	}
	if err := writer.WriteField("conditions", constants.ConditionNoDamage); err != nil {
		t.Fatalf("write field failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer failed: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestAdminManagesRolePolicies(t *testing.T) {
	f := setupRouterTest(t)
	seedUser(t, f.db, "root", constants.RoleAdmin)
	adminToken := f.login(t, "root")
	staffToken := f.login(t, "planner")
	driverToken := f.login(t, "driver1")

	if resp := f.do(t, http.MethodGet, "/api/v1/admin/authz/roles", staffToken, nil, ""); resp.StatusCode != 403 {
		t.Fatalf("staff on authz roles want 403 got %d", resp.StatusCode)
	}
	grant := `{"role":"driver","object":"/admin/assets","action":"get"}`
	if resp := f.do(t, http.MethodPost, "/api/v1/admin/authz/policies", staffToken, bytes.NewBufferString(grant), "application/json"); resp.StatusCode != 403 {
		t.Fatalf("staff grant want 403 got %d", resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/api/v1/admin/authz/roles", adminToken, nil, "")
	if resp.StatusCode != 0 {
		t.Fatalf("list roles failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var roles []string
	if err := json.Unmarshal(resp.Data, &roles); err != nil {
		t.Fatalf("unmarshal roles failed: %v", err)
	}
	if !strings.Contains(strings.Join(roles, ","), "role:driver") {
		t.Fatalf("builtin driver role missing: %v", roles)
	}

	if resp := f.do(t, http.MethodGet, "/api/v1/admin/assets", driverToken, nil, ""); resp.StatusCode != 403 {
		t.Fatalf("driver on assets before grant want 403 got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPost, "/api/v1/admin/authz/policies", adminToken, bytes.NewBufferString(grant), "application/json"); resp.StatusCode != 0 {
		t.Fatalf("grant failed: %d %s", resp.StatusCode, resp.Msg)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/admin/assets", driverToken, nil, ""); resp.StatusCode != 0 {
		t.Fatalf("driver on assets after grant want 0 got %d %s", resp.StatusCode, resp.Msg)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/admin/authz/roles/driver/policies", adminToken, nil, "")
	if resp.StatusCode != 0 {
		t.Fatalf("role policies failed: %d %s", resp.StatusCode, resp.Msg)
	}
	if !strings.Contains(string(resp.Data), `"object":"/admin/assets","action":"GET"`) {
		t.Fatalf("granted policy not listed: %s", string(resp.Data))
	}

	if resp := f.do(t, http.MethodDelete, "/api/v1/admin/authz/policies", adminToken, bytes.NewBufferString(grant), "application/json"); resp.StatusCode != 0 {
		t.Fatalf("revoke failed: %d %s", resp.StatusCode, resp.Msg)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/admin/assets", driverToken, nil, ""); resp.StatusCode != 403 {
		t.Fatalf("driver on assets after revoke want 403 got %d", resp.StatusCode)
	}

	var audits int64
	if err := f.db.Model(&models.AuditLog{}).Where("action_code IN ?", []string{constants.AuditAuthzPolicyGranted, constants.AuditAuthzPolicyRevoked}).Count(&audits).Error; err != nil {
		t.Fatalf("count audits failed: %v", err)
	}
	if audits != 2 {
		t.Fatalf("authz changes should be audited, got %d", audits)
	}
}
