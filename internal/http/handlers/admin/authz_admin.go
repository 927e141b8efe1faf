package admin

import (
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "authz roles fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 获取角色直接持有的策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := strings.TrimSpace(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "role invalid", nil)
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "role invalid", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "authz policy grant failed", err)
		return
	}
	h.recordAuthzChange(c, constants.AuditAuthzPolicyGranted, req)
	requestLog(c).Infow("admin_authz_policy_granted",
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "authz policy revoke failed", err)
		return
	}
	h.recordAuthzChange(c, constants.AuditAuthzPolicyRevoked, req)
	requestLog(c).Infow("admin_authz_policy_revoked",
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

func (h *Handler) recordAuthzChange(c *gin.Context, actionCode string, req authzPolicyPayload) {
	actor, _ := service.SessionFromContext(c.Request.Context())
	h.AuditService.Record(c.Request.Context(), service.AuditEntry{
		Actor:      actor,
		ActionCode: actionCode,
		TargetType: "authz_policy",
		Detail: models.JSON{
			"role":   strings.ToLower(strings.TrimSpace(req.Role)),
			"object": req.Object,
			"action": strings.ToUpper(strings.TrimSpace(req.Action)),
		},
	})
}
