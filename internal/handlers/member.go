package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type MemberHandler struct {
	collaborationService *services.CollaborationService
}

func NewMemberHandler(collaborationService *services.CollaborationService) *MemberHandler {
	return &MemberHandler{collaborationService: collaborationService}
}

// List returns the owner followed by the members
// GET /api/projects/:id/members
func (h *MemberHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	members, err := h.collaborationService.ListMembers(actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// Add invites a registered user by email
// POST /api/projects/:id/members
func (h *MemberHandler) Add(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.collaborationService.AddMemberByEmail(actor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// UpdateRole
// PUT /api/projects/:id/members/:userId
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	var req services.UpdateMemberRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.collaborationService.UpdateMemberRole(actor(c), id, userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}

// Remove
// DELETE /api/projects/:id/members/:userId
func (h *MemberHandler) Remove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}

	if err := h.collaborationService.RemoveMember(actor(c), id, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "member removed successfully"})
}
