package apihandlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
)

func (h *HttpEndpoints) AddParticipantsAPI(rg *gin.RouterGroup) {
	participantsGroup := rg.Group("/participants")
	participantsGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	{
		participantsGroup.GET("", h.getParticipants)
		participantsGroup.POST("", mw.RequirePayload(), h.createParticipant)
	}

	participantGroup := participantsGroup.Group("/:id")
	participantGroup.Use(mw.RequireScope(types.ENTITY_TYPE_PARTICIPANT, "id", h.lookup))
	{
		participantGroup.GET("", h.getParticipant)
		participantGroup.PUT("", mw.RequirePayload(), h.updateParticipant)
		participantGroup.DELETE("", mw.RequireRoles(types.ROLE_ADMIN), h.deleteParticipant)

		participantGroup.POST("/transition", mw.RequirePayload(), h.transitionParticipant)
		participantGroup.GET("/transitions", h.getAllowedTransitions)
		participantGroup.GET("/history", h.getParticipantHistory)

		participantGroup.GET("/notes", h.getParticipantNotes)
		participantGroup.POST("/notes", mw.RequirePayload(), h.addParticipantNote)
		participantGroup.PUT("/notes/:noteId/complete", h.completeParticipantNote)
	}
}

func (h *HttpEndpoints) getParticipants(c *gin.Context) {
	p := principalFromCtx(c)
	q, ok := h.paginationFromCtx(c, apihelpers.DEFAULT_PAGE_LIMIT)
	if !ok {
		return
	}

	filter, err := participantListFilter(c)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	participants, err := h.recruitmentDBConn.GetParticipants(c.Request.Context(),
		permissionchecker.Restrict(permissionchecker.ScopeFilter(p, types.ENTITY_TYPE_PARTICIPANT), filter),
		q.Page, q.Limit,
	)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participants)
}

func participantListFilter(c *gin.Context) (bson.M, error) {
	filter := bson.M{}
	if err := addObjectIDQueryFilter(c, filter, "studyId", "studyId"); err != nil {
		return nil, err
	}
	if err := addObjectIDQueryFilter(c, filter, "siteId", "siteId"); err != nil {
		return nil, err
	}
	if status := types.ParticipantStatus(c.Query("status")); status != "" {
		if !status.IsValid() {
			return nil, apihelpers.BadRequest("invalid status")
		}
		filter["status"] = status
	}
	if search := c.Query("search"); search != "" {
		filter["$or"] = recruitmentDB.SearchFilter(search, "firstName", "lastName", "email")["$or"]
	}
	return filter, nil
}

type createParticipantReq struct {
	FirstName  string                      `json:"firstName" binding:"required"`
	LastName   string                      `json:"lastName" binding:"required"`
	Email      string                      `json:"email" binding:"omitempty,email"`
	Phone      string                      `json:"phone"`
	StudyID    string                      `json:"studyId" binding:"required"`
	SiteID     string                      `json:"siteId"`
	Attributes types.ParticipantAttributes `json:"attributes"`
}

// participantTargets resolves study and site of a new participant. Site users always add to their own site.
func participantTargets(p permissionchecker.Principal, req createParticipantReq) (studyID primitive.ObjectID, siteID primitive.ObjectID, err error) {
	details := []apihelpers.FieldError{}

	studyID, err = primitive.ObjectIDFromHex(req.StudyID)
	if err != nil {
		details = append(details, apihelpers.FieldError{Field: "studyId", Message: "is invalid"})
	}

	switch {
	case p.Role == types.ROLE_SITE && (req.SiteID == "" || req.SiteID == p.SiteID.Hex()):
		siteID = p.SiteID
	case p.Role == types.ROLE_SITE:
		return studyID, siteID, apihelpers.Forbidden()
	case req.SiteID == "":
		details = append(details, apihelpers.FieldError{Field: "siteId", Message: "is required"})
	default:
		if siteID, err = primitive.ObjectIDFromHex(req.SiteID); err != nil {
			details = append(details, apihelpers.FieldError{Field: "siteId", Message: "is invalid"})
		}
	}

	if len(details) > 0 {
		return studyID, siteID, apihelpers.ValidationError(details...)
	}
	return studyID, siteID, nil
}

func (h *HttpEndpoints) createParticipant(c *gin.Context) {
	p := principalFromCtx(c)

	var req createParticipantReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	studyID, siteID, err := participantTargets(p, req)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	study, err := h.lookup.GetStudyByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apihelpers.AbortWithError(c, apihelpers.ValidationError(apihelpers.FieldError{Field: "studyId", Message: "does not exist"}))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}
	if !h.canAccess(ctx, p, types.StudyRef(studyID)) {
		apihelpers.AbortWithError(c, apihelpers.Forbidden())
		return
	}
	if !study.HasLinkedSite(siteID) {
		apihelpers.AbortWithError(c, apihelpers.ValidationError(apihelpers.FieldError{Field: "siteId", Message: "is not linked to the study"}))
		return
	}

	participant := types.Participant{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		StudyID:    study.ID,
		SiteID:     siteID,
		SponsorID:  study.SponsorID,
		Attributes: req.Attributes,
	}
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		participant, err = h.recruitmentDBConn.CreateParticipant(ctx, participant)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_CREATE, types.ParticipantRef(participant.ID)).
			WithMeta("studyId", studyID.Hex()).
			WithMeta("siteId", siteID.Hex()))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("participant created", slog.String("participantID", participant.ID.Hex()), slog.String("studyID", studyID.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusCreated, participant)
}

func (h *HttpEndpoints) getParticipant(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	participant, err := h.recruitmentDBConn.GetParticipantByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

type updateParticipantReq struct {
	FirstName  *string                      `json:"firstName" bson:"firstName,omitempty"`
	LastName   *string                      `json:"lastName" bson:"lastName,omitempty"`
	Email      *string                      `json:"email" bson:"email,omitempty" binding:"omitempty,email"`
	Phone      *string                      `json:"phone" bson:"phone,omitempty"`
	Attributes *types.ParticipantAttributes `json:"attributes" bson:"attributes,omitempty"`

	Status  *string `json:"status" bson:"-"`
	StudyID *string `json:"studyId" bson:"-"`
	SiteID  *string `json:"siteId" bson:"-"`
}

func (req updateParticipantReq) validate() error {
	if req.Status != nil {
		return apihelpers.ValidationError(apihelpers.FieldError{Field: "status", Message: "can only be changed with a transition"})
	}
	details := []apihelpers.FieldError{}
	if req.StudyID != nil {
		details = append(details, apihelpers.FieldError{Field: "studyId", Message: "cannot be changed"})
	}
	if req.SiteID != nil {
		details = append(details, apihelpers.FieldError{Field: "siteId", Message: "cannot be changed"})
	}
	if len(details) > 0 {
		return apihelpers.ValidationError(details...)
	}
	return nil
}

func (h *HttpEndpoints) updateParticipant(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req updateParticipantReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	set, err := toUpdateDoc(req)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	var participant types.Participant
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		participant, err = h.recruitmentDBConn.UpdateParticipant(ctx, id, set)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.ParticipantRef(id)).
			WithMeta("fields", changedFields(set)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func (h *HttpEndpoints) deleteParticipant(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var result recruitmentDB.CascadeResult
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		result, err = h.recruitmentDBConn.DeleteParticipant(ctx, id)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_DELETE, types.ParticipantRef(id)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	h.removeStoredFiles(result.Files)

	slog.Info("participant deleted", slog.String("participantID", id.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, gin.H{"message": "participant deleted"})
}

type transitionReq struct {
	To types.ParticipantStatus `json:"to" binding:"required"`
}

func (h *HttpEndpoints) transitionParticipant(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req transitionReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	// unknown targets are rejected by the state machine with the allowed list
	participant, err := h.stateMachine.Transition(c.Request.Context(), id, req.To, p.UserID)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func (h *HttpEndpoints) getAllowedTransitions(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	participant, err := h.recruitmentDBConn.GetParticipantByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	table := h.stateMachine.Table()
	c.JSON(http.StatusOK, gin.H{
		"currentStatus":      participant.Status,
		"allowedTransitions": table.Allowed(participant.Status),
		"isTerminal":         table.IsTerminal(participant.Status),
	})
}

func (h *HttpEndpoints) getParticipantHistory(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	history, err := h.recruitmentDBConn.GetHistory(c.Request.Context(), types.ParticipantRef(id), types.EVENT_ACTION_STATE_CHANGE)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *HttpEndpoints) getParticipantNotes(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	notes, err := h.recruitmentDBConn.GetNotesForSubject(c.Request.Context(), types.ParticipantRef(id))
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

type addNoteReq struct {
	Content string         `json:"content" binding:"required"`
	Type    types.NoteType `json:"type" binding:"omitempty,oneof=note task consent screening visit"`
	DueDate *time.Time     `json:"dueDate"`
}

func (h *HttpEndpoints) addParticipantNote(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req addNoteReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if req.Type == types.NOTE_TYPE_TASK && req.DueDate == nil {
		apihelpers.AbortWithError(c, apihelpers.ValidationError(apihelpers.FieldError{Field: "dueDate", Message: "is required for tasks"}))
		return
	}

	note := types.Note{
		AuthorID: p.UserID,
		Subject:  types.ParticipantRef(id),
		Content:  req.Content,
		Type:     req.Type,
		DueDate:  req.DueDate,
	}

	ctx := c.Request.Context()
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		note, err = h.recruitmentDBConn.CreateNote(ctx, note)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_CREATE, types.NoteRef(note.ID)).
			WithMeta("participantId", id.Hex()).
			WithMeta("type", string(note.Type)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *HttpEndpoints) completeParticipantNote(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	noteID, ok := idFromParam(c, "noteId")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var note types.Note
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		note, err = h.recruitmentDBConn.CompleteNote(ctx, types.ParticipantRef(id), noteID)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.NoteRef(noteID)).
			WithMeta("participantId", id.Hex()).
			WithMeta("isCompleted", true))
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apihelpers.AbortWithError(c, apihelpers.NotFound("note not found"))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}
