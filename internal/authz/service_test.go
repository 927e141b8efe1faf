package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func mustEnforce(t *testing.T, svc *Service, role, obj, act string) bool {
	t.Helper()
	allow, err := svc.EnforceRole(role, obj, act)
	if err != nil {
		t.Fatalf("enforce %s %s %s failed: %v", role, act, obj, err)
	}
	return allow
}

func TestEnforceRoleWithGrantedPolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("dispatcher", "/admin/delivery-items/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if !mustEnforce(t, svc, "dispatcher", "/api/v1/admin/delivery-items/42", "get") {
		t.Fatalf("expected allow=true")
	}
	if mustEnforce(t, svc, "dispatcher", "/api/v1/admin/delivery-items/42", "POST") {
		t.Fatalf("expected allow=false")
	}

	if err := svc.RevokeRolePolicy("dispatcher", "/admin/delivery-items/:id", "GET"); err != nil {
		t.Fatalf("revoke role policy failed: %v", err)
	}
	if mustEnforce(t, svc, "dispatcher", "/admin/delivery-items/42", "GET") {
		t.Fatalf("expected revoked policy to deny")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/driver/tasks/:id", want: "/driver/tasks/:id"},
		{in: "/driver/tasks/:id", want: "/driver/tasks/:id"},
		{in: "admin/assets", want: "/admin/assets"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复执行不应报错
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{"role:admin": true, "role:staff": true, "role:driver": true}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	cases := []struct {
		role, obj, act string
		want           bool
	}{
		{"driver", "/api/v1/driver/tasks", "GET", true},
		{"driver", "/api/v1/driver/tasks/7/delivery/complete", "POST", true},
		{"driver", "/api/v1/admin/delivery-items", "GET", false},
		{"staff", "/api/v1/admin/delivery-items/7/assign-delivery", "POST", true},
		{"staff", "/api/v1/admin/asset-sync-jobs/3/retry", "POST", false},
		{"staff", "/api/v1/driver/tasks", "GET", false},
		{"admin", "/api/v1/admin/asset-sync-jobs/3/retry", "POST", true},
		{"admin", "/api/v1/admin/audit-logs", "GET", true},
	}
	for _, c := range cases {
		if got := mustEnforce(t, svc, c.role, c.obj, c.act); got != c.want {
			t.Fatalf("%s %s %s: want %v got %v", c.role, c.act, c.obj, c.want, got)
		}
	}

	policies, err := svc.GetRolePolicies("driver")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	if len(policies) != 5 {
		t.Fatalf("driver policies want 5, got %d", len(policies))
	}
}
