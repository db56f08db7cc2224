package apihandlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
)

func (h *HttpEndpoints) AddStudiesAPI(rg *gin.RouterGroup) {
	studiesGroup := rg.Group("/studies")
	studiesGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	{
		studiesGroup.GET("", h.getStudies)
		studiesGroup.POST("", mw.RequireRoles(types.ROLE_ADMIN, types.ROLE_SPONSOR), mw.RequirePayload(), h.createStudy)
	}

	studyGroup := studiesGroup.Group("/:id")
	studyGroup.Use(mw.RequireScope(types.ENTITY_TYPE_STUDY, "id", h.lookup))
	{
		studyGroup.GET("", h.getStudy)
		studyGroup.PUT("", mw.RequireRoles(types.ROLE_ADMIN, types.ROLE_SPONSOR), mw.RequirePayload(), h.updateStudy)
		studyGroup.DELETE("", mw.RequireRoles(types.ROLE_ADMIN), h.deleteStudy)
		studyGroup.POST("/sites/:siteId", mw.RequireRoles(types.ROLE_ADMIN, types.ROLE_SPONSOR), h.linkSiteToStudy)
		studyGroup.DELETE("/sites/:siteId", mw.RequireRoles(types.ROLE_ADMIN, types.ROLE_SPONSOR), h.unlinkSiteFromStudy)
		studyGroup.GET("/funnel", h.getStudyFunnel)
	}
}

func (h *HttpEndpoints) getStudies(c *gin.Context) {
	p := principalFromCtx(c)
	q, ok := h.paginationFromCtx(c, apihelpers.DEFAULT_PAGE_LIMIT)
	if !ok {
		return
	}

	filter := bson.M{}
	if err := addObjectIDQueryFilter(c, filter, "sponsorId", "sponsorId"); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if err := addObjectIDQueryFilter(c, filter, "siteId", "linkedSites"); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if status := types.StudyStatus(c.Query("status")); status != "" {
		if !status.IsValid() {
			apihelpers.AbortWithError(c, apihelpers.BadRequest("invalid status"))
			return
		}
		filter["status"] = status
	}
	if search := c.Query("search"); search != "" {
		filter["$or"] = recruitmentDB.SearchFilter(search, "title", "protocolId", "therapeuticArea")["$or"]
	}

	studies, err := h.recruitmentDBConn.GetStudies(c.Request.Context(),
		permissionchecker.Restrict(permissionchecker.ScopeFilter(p, types.ENTITY_TYPE_STUDY), filter),
		q.Page, q.Limit,
	)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, studies)
}

type createStudyReq struct {
	Title            string            `json:"title" binding:"required"`
	ProtocolID       string            `json:"protocolId" binding:"required"`
	TherapeuticArea  string            `json:"therapeuticArea"`
	SponsorID        string            `json:"sponsorId"`
	Status           types.StudyStatus `json:"status" binding:"omitempty,oneof=Recruitment Active CloseOut Closed"`
	ExpectedSubjects int64             `json:"expectedSubjects" binding:"min=0"`
}

func (h *HttpEndpoints) createStudy(c *gin.Context) {
	p := principalFromCtx(c)

	var req createStudyReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	sponsorID, err := sponsorForCreate(p, req.SponsorID)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.checkSponsorExists(ctx, sponsorID); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	study := types.Study{
		Title:            req.Title,
		ProtocolID:       req.ProtocolID,
		TherapeuticArea:  req.TherapeuticArea,
		SponsorID:        sponsorID,
		Status:           req.Status,
		ExpectedSubjects: req.ExpectedSubjects,
	}
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		study, err = h.recruitmentDBConn.CreateStudy(ctx, study)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_CREATE, types.StudyRef(study.ID)).
			WithMeta("protocolId", study.ProtocolID))
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			apihelpers.AbortWithError(c, apihelpers.Conflict("protocolId already exists"))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("study created", slog.String("studyID", study.ID.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusCreated, study)
}

func (h *HttpEndpoints) getStudy(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	study, err := h.recruitmentDBConn.GetStudyByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, study)
}

// enrolledSubjects and sponsorId are not accepted here.
type updateStudyReq struct {
	Title            *string            `json:"title" bson:"title,omitempty"`
	ProtocolID       *string            `json:"protocolId" bson:"protocolId,omitempty"`
	TherapeuticArea  *string            `json:"therapeuticArea" bson:"therapeuticArea,omitempty"`
	Status           *types.StudyStatus `json:"status" bson:"status,omitempty" binding:"omitempty,oneof=Recruitment Active CloseOut Closed"`
	ExpectedSubjects *int64             `json:"expectedSubjects" bson:"expectedSubjects,omitempty" binding:"omitempty,min=0"`
}

func (h *HttpEndpoints) updateStudy(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req updateStudyReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	set, err := toUpdateDoc(req)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	var study types.Study
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		study, err = h.recruitmentDBConn.UpdateStudy(ctx, id, set)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.StudyRef(id)).
			WithMeta("fields", changedFields(set)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, study)
}

func (h *HttpEndpoints) deleteStudy(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	study, err := h.recruitmentDBConn.GetStudyByID(ctx, id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if !h.requireCascadeConfirmation(c, bson.M{"studyId": id}) {
		return
	}

	var result recruitmentDB.CascadeResult
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		result, err = h.recruitmentDBConn.DeleteStudyCascade(ctx, study)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_DELETE, types.StudyRef(id)).
			WithMeta("participantsDeleted", result.ParticipantsDeleted))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	h.removeStoredFiles(result.Files)

	slog.Info("study deleted", slog.String("studyID", id.Hex()), slog.Int64("participantsDeleted", result.ParticipantsDeleted), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, gin.H{
		"message":             "study deleted",
		"participantsDeleted": result.ParticipantsDeleted,
	})
}

func (h *HttpEndpoints) linkSiteToStudy(c *gin.Context) {
	h.changeSiteLink(c, true)
}

func (h *HttpEndpoints) unlinkSiteFromStudy(c *gin.Context) {
	h.changeSiteLink(c, false)
}

func (h *HttpEndpoints) changeSiteLink(c *gin.Context, link bool) {
	p := principalFromCtx(c)
	studyID, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	siteID, ok := idFromParam(c, "siteId")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	study, err := h.lookup.GetStudyByID(ctx, studyID)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	site, err := h.lookup.GetSiteByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apihelpers.AbortWithError(c, apihelpers.NotFound("site not found"))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}
	if link && site.SponsorID != study.SponsorID {
		apihelpers.AbortWithError(c, apihelpers.BadRequest("site belongs to a different sponsor"))
		return
	}
	if !link {
		placed, err := h.lookup.GetParticipants(ctx, bson.M{"studyId": studyID, "siteId": siteID}, 1, 1)
		if err != nil {
			apihelpers.AbortWithError(c, err)
			return
		}
		if placed.Total > 0 {
			apihelpers.AbortWithError(c, apihelpers.Conflict("site still has participants in this study"))
			return
		}
	}

	metaKey := "linkedSite"
	if !link {
		metaKey = "unlinkedSite"
	}
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		if link {
			study, err = h.recruitmentDBConn.LinkSiteToStudy(ctx, studyID, siteID)
		} else {
			study, err = h.recruitmentDBConn.UnlinkSiteFromStudy(ctx, studyID, siteID)
		}
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.StudyRef(studyID)).
			WithMeta(metaKey, siteID.Hex()))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("study sites changed", slog.String("studyID", studyID.Hex()), slog.String(metaKey, siteID.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, study)
}

type funnelResponse struct {
	StudyID          string              `json:"studyId"`
	ExpectedSubjects int64               `json:"expectedSubjects"`
	EnrolledSubjects int64               `json:"enrolledSubjects"`
	Total            int64               `json:"total"`
	Counts           []types.StatusCount `json:"counts"`
}

// fillFunnel returns one row per known status in funnel order, including statuses without participants.
func fillFunnel(counts []types.StatusCount) ([]types.StatusCount, int64) {
	byStatus := make(map[types.ParticipantStatus]int64, len(counts))
	for _, sc := range counts {
		byStatus[sc.Status] += sc.Count
	}

	rows := make([]types.StatusCount, 0, len(types.ParticipantStatuses))
	var total int64
	for _, status := range types.ParticipantStatuses {
		rows = append(rows, types.StatusCount{Status: status, Count: byStatus[status]})
		total += byStatus[status]
	}
	return rows, total
}

func (h *HttpEndpoints) getStudyFunnel(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	study, err := h.recruitmentDBConn.GetStudyByID(ctx, id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	counts, err := h.recruitmentDBConn.GetStudyFunnel(ctx, id, permissionchecker.ScopeFilter(p, types.ENTITY_TYPE_PARTICIPANT))
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	rows, total := fillFunnel(counts)
	c.JSON(http.StatusOK, funnelResponse{
		StudyID:          study.ID.Hex(),
		ExpectedSubjects: study.ExpectedSubjects,
		EnrolledSubjects: study.EnrolledSubjects,
		Total:            total,
		Counts:           rows,
	})
}
