package admin

import (
	"github.com/renthportal/renthportal-sub001/internal/http/response"

	"github.com/gin-gonic/gin"
)

// TransferProposal 已签署报价单转为租赁项目
func (h *Handler) TransferProposal(c *gin.Context) {
	actor, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.ProposalService.Transfer(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "proposal transfer failed")
		return
	}
	response.Success(c, result)
}
