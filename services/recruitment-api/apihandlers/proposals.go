package apihandlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	"github.com/case-framework/recruitment-backend/pkg/messaging/templates"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const PROPOSALS_PAGE_LIMIT = 20

func (h *HttpEndpoints) AddProposalsAPI(rg *gin.RouterGroup) {
	proposalsGroup := rg.Group("/proposals")
	{
		proposalsGroup.POST("", mw.RequirePayload(), h.submitProposal)
	}

	adminGroup := proposalsGroup.Group("")
	adminGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	adminGroup.Use(mw.RequireRoles(types.ROLE_ADMIN))
	{
		adminGroup.GET("", h.getProposals)
		adminGroup.GET("/:id", h.getProposal)
		adminGroup.PUT("/:id", mw.RequirePayload(), h.updateProposal)
		adminGroup.DELETE("/:id", h.deleteProposal)
	}
}

type submitProposalReq struct {
	Name            string     `json:"name" binding:"required,max=200"`
	Email           string     `json:"email" binding:"required,email"`
	Phone           string     `json:"phone" binding:"required,max=50"`
	Company         string     `json:"company" binding:"required,max=200"`
	Role            types.Role `json:"role" binding:"required,oneof=sponsor site"`
	StudyTitle      string     `json:"studyTitle" binding:"max=300"`
	TherapeuticArea string     `json:"therapeuticArea" binding:"max=200"`
	Timeline        string     `json:"timeline" binding:"max=200"`
	Message         string     `json:"message" binding:"max=5000"`
}

func (req submitProposalReq) toProposal() types.Proposal {
	return types.Proposal{
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:           strings.TrimSpace(req.Phone),
		Company:         strings.TrimSpace(req.Company),
		Role:            req.Role,
		StudyTitle:      req.StudyTitle,
		TherapeuticArea: req.TherapeuticArea,
		Timeline:        req.Timeline,
		Message:         req.Message,
	}
}

func (h *HttpEndpoints) submitProposal(c *gin.Context) {
	var req submitProposalReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	proposal := req.toProposal()
	ctx := c.Request.Context()
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		proposal, err = h.recruitmentDBConn.CreateProposal(ctx, proposal)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(primitive.NilObjectID, types.EVENT_ACTION_CREATE, types.ProposalRef(proposal.ID)).
			WithMeta("role", string(proposal.Role)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("proposal received", slog.String("proposalID", proposal.ID.Hex()), slog.String("role", string(proposal.Role)))
	go h.notifyProposal(proposal)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "proposal received",
		"proposal": proposal,
	})
}

// notifyProposal mails a new proposal to the configured inbox. Failures are logged only.
func (h *HttpEndpoints) notifyProposal(proposal types.Proposal) {
	if h.mailer == nil || len(h.proposalInbox) == 0 {
		slog.Debug("proposal notification skipped", slog.String("proposalID", proposal.ID.Hex()))
		return
	}

	subject, content, err := h.messageTemplates.Render(templates.MESSAGE_TYPE_PROPOSAL_RECEIVED, proposal)
	if err != nil {
		slog.Error("failed to render proposal notification", slog.String("proposalID", proposal.ID.Hex()), slog.String("error", err.Error()))
		return
	}
	if err := h.mailer.SendMail(h.proposalInbox, subject, content, nil); err != nil {
		slog.Error("failed to send proposal notification", slog.String("proposalID", proposal.ID.Hex()), slog.String("error", err.Error()))
		return
	}
	slog.Info("proposal notification sent", slog.String("proposalID", proposal.ID.Hex()))
}

func (h *HttpEndpoints) getProposals(c *gin.Context) {
	q, ok := h.paginationFromCtx(c, PROPOSALS_PAGE_LIMIT)
	if !ok {
		return
	}

	filter := bson.M{}
	if status := types.ProposalStatus(c.Query("status")); status != "" {
		if !status.IsValid() {
			apihelpers.AbortWithError(c, apihelpers.BadRequest("invalid status"))
			return
		}
		filter["status"] = status
	}
	if role := types.Role(c.Query("role")); role != "" {
		filter["role"] = role
	}

	proposals, err := h.recruitmentDBConn.GetProposals(c.Request.Context(), filter, q.Page, q.Limit)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

func (h *HttpEndpoints) getProposal(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	proposal, err := h.recruitmentDBConn.GetProposalByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

type updateProposalReq struct {
	Status     *types.ProposalStatus `json:"status"`
	AssignedTo *string               `json:"assignedTo"`
}

// updateDoc builds the $set document. An empty assignedTo removes the assignment.
func (req updateProposalReq) updateDoc() (bson.M, error) {
	set := bson.M{}
	details := []apihelpers.FieldError{}

	if req.Status != nil {
		if !req.Status.IsValid() {
			details = append(details, apihelpers.FieldError{Field: "status", Message: "is not a known status"})
		} else {
			set["status"] = *req.Status
		}
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			set["assignedTo"] = nil
		} else if id, err := primitive.ObjectIDFromHex(*req.AssignedTo); err != nil {
			details = append(details, apihelpers.FieldError{Field: "assignedTo", Message: "is invalid"})
		} else {
			set["assignedTo"] = id
		}
	}

	if len(details) > 0 {
		return nil, apihelpers.ValidationError(details...)
	}
	if len(set) == 0 {
		return nil, apihelpers.BadRequest("nothing to update")
	}
	return set, nil
}

func (h *HttpEndpoints) updateProposal(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req updateProposalReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	set, err := req.updateDoc()
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if assignee, ok := set["assignedTo"].(primitive.ObjectID); ok {
		if _, err := h.recruitmentDBConn.GetUserByID(ctx, assignee); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				apihelpers.AbortWithError(c, apihelpers.ValidationError(apihelpers.FieldError{Field: "assignedTo", Message: "does not exist"}))
				return
			}
			apihelpers.AbortWithError(c, err)
			return
		}
	}

	var proposal types.Proposal
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		previous, err := h.recruitmentDBConn.GetProposalByID(ctx, id)
		if err != nil {
			return err
		}
		proposal, err = h.recruitmentDBConn.UpdateProposal(ctx, id, set)
		if err != nil {
			return err
		}
		entry := types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.ProposalRef(id)).
			WithMeta("fields", changedFields(set))
		if previous.Status != proposal.Status {
			entry.From = string(previous.Status)
			entry.To = string(proposal.Status)
		}
		return h.logEvent(ctx, entry)
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (h *HttpEndpoints) deleteProposal(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		if err := h.recruitmentDBConn.DeleteProposal(ctx, id); err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_DELETE, types.ProposalRef(id)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("proposal deleted", slog.String("proposalID", id.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, gin.H{"message": "proposal deleted"})
}
