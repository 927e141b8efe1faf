package authz

import (
	"fmt"

	"github.com/renthportal/renthportal-sub001/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleDriver,
			Policies: []Policy{
				{Object: "/driver/tasks", Action: "GET"},
				{Object: "/driver/tasks/:id", Action: "GET"},
				{Object: "/driver/tasks/:id/:direction/start", Action: "POST"},
				{Object: "/driver/tasks/:id/:direction/complete", Action: "POST"},
				{Object: "/driver/tasks/:id/:direction/record", Action: "GET"},
			},
		},
		{
			Role: constants.RoleStaff,
			Policies: []Policy{
				{Object: "/admin/proposals/:id/transfer", Action: "POST"},
				{Object: "/admin/delivery-items", Action: "GET"},
				{Object: "/admin/delivery-items/export", Action: "GET"},
				{Object: "/admin/delivery-items/:id", Action: "GET"},
				{Object: "/admin/delivery-items/:id/assign-delivery", Action: "POST"},
				{Object: "/admin/delivery-items/:id/plan-return", Action: "POST"},
				{Object: "/admin/drivers", Action: "GET"},
				{Object: "/admin/assets", Action: "GET"},
				{Object: "/admin/assets/:id/status", Action: "PATCH"},
				{Object: "/admin/asset-sync-jobs", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleStaff},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
