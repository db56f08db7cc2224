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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
)

const CONFIRM_CASCADE = "cascade"

func (h *HttpEndpoints) AddSitesAPI(rg *gin.RouterGroup) {
	sitesGroup := rg.Group("/sites")
	sitesGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	{
		sitesGroup.GET("", h.getSites)
		sitesGroup.POST("", mw.RequireRoles(types.ROLE_ADMIN, types.ROLE_SPONSOR), mw.RequirePayload(), h.createSite)
		sitesGroup.GET("/:id", mw.RequireScope(types.ENTITY_TYPE_SITE, "id", h.lookup), h.getSite)
		sitesGroup.PUT("/:id", mw.RequireScope(types.ENTITY_TYPE_SITE, "id", h.lookup), mw.RequirePayload(), h.updateSite)
		sitesGroup.DELETE("/:id", mw.RequireRoles(types.ROLE_ADMIN), mw.RequireScope(types.ENTITY_TYPE_SITE, "id", h.lookup), h.deleteSite)
	}
}

func (h *HttpEndpoints) getSites(c *gin.Context) {
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
	if status := types.SiteStatus(c.Query("status")); status != "" {
		if !status.IsValid() {
			apihelpers.AbortWithError(c, apihelpers.BadRequest("invalid status"))
			return
		}
		filter["status"] = status
	}
	if search := c.Query("search"); search != "" {
		filter["$or"] = recruitmentDB.SearchFilter(search, "name", "contactName")["$or"]
	}

	sites, err := h.recruitmentDBConn.GetSites(c.Request.Context(),
		permissionchecker.Restrict(permissionchecker.ScopeFilter(p, types.ENTITY_TYPE_SITE), filter),
		q.Page, q.Limit,
	)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sites)
}

type createSiteReq struct {
	Name         string           `json:"name" binding:"required"`
	Address      string           `json:"address"`
	ContactName  string           `json:"contactName"`
	ContactEmail string           `json:"contactEmail" binding:"omitempty,email"`
	Phone        string           `json:"phone"`
	SponsorID    string           `json:"sponsorId"`
	Status       types.SiteStatus `json:"status" binding:"omitempty,oneof=Pending Active Inactive"`
}

// sponsorForCreate picks the owning sponsor of a new site or study. Sponsor users always create
// for their own sponsor, admins must name one.
func sponsorForCreate(p permissionchecker.Principal, requested string) (primitive.ObjectID, error) {
	if p.Role == types.ROLE_SPONSOR {
		return p.SponsorID, nil
	}
	id, err := primitive.ObjectIDFromHex(requested)
	if err != nil {
		return primitive.NilObjectID, apihelpers.ValidationError(apihelpers.FieldError{Field: "sponsorId", Message: "is required"})
	}
	return id, nil
}

func (h *HttpEndpoints) checkSponsorExists(ctx context.Context, id primitive.ObjectID) error {
	_, err := h.recruitmentDBConn.GetSponsorByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apihelpers.ValidationError(apihelpers.FieldError{Field: "sponsorId", Message: "does not exist"})
	}
	return err
}

func (h *HttpEndpoints) createSite(c *gin.Context) {
	p := principalFromCtx(c)

	var req createSiteReq
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

	site := types.Site{
		Name:         req.Name,
		Address:      req.Address,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		SponsorID:    sponsorID,
		Status:       req.Status,
	}
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		site, err = h.recruitmentDBConn.CreateSite(ctx, site)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_CREATE, types.SiteRef(site.ID)).
			WithMeta("sponsorId", sponsorID.Hex()))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("site created", slog.String("siteID", site.ID.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusCreated, site)
}

func (h *HttpEndpoints) getSite(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	site, err := h.recruitmentDBConn.GetSiteByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

type updateSiteReq struct {
	Name         *string           `json:"name" bson:"name,omitempty"`
	Address      *string           `json:"address" bson:"address,omitempty"`
	ContactName  *string           `json:"contactName" bson:"contactName,omitempty"`
	ContactEmail *string           `json:"contactEmail" bson:"contactEmail,omitempty" binding:"omitempty,email"`
	Phone        *string           `json:"phone" bson:"phone,omitempty"`
	Status       *types.SiteStatus `json:"status" bson:"status,omitempty" binding:"omitempty,oneof=Pending Active Inactive"`
	SponsorID    *string           `json:"sponsorId" bson:"-"`
}

func (h *HttpEndpoints) updateSite(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req updateSiteReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	// only admins move sites between sponsors, site users cannot change their own status
	if (req.SponsorID != nil && !p.IsAdmin()) || (req.Status != nil && p.Role == types.ROLE_SITE) {
		apihelpers.AbortWithError(c, apihelpers.Forbidden())
		return
	}

	set, err := toUpdateDoc(req)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.SponsorID != nil {
		sponsorID, err := primitive.ObjectIDFromHex(*req.SponsorID)
		if err != nil {
			apihelpers.AbortWithError(c, apihelpers.ValidationError(apihelpers.FieldError{Field: "sponsorId", Message: "is invalid"}))
			return
		}
		if err := h.checkSponsorExists(ctx, sponsorID); err != nil {
			apihelpers.AbortWithError(c, err)
			return
		}
		set["sponsorId"] = sponsorID
	}

	var site types.Site
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		site, err = h.recruitmentDBConn.UpdateSite(ctx, id, set)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.SiteRef(id)).
			WithMeta("fields", changedFields(set)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

// requireCascadeConfirmation rejects deleting an entity that still has participants unless the
// caller confirmed the cascade.
func (h *HttpEndpoints) requireCascadeConfirmation(c *gin.Context, participantFilter bson.M) bool {
	if c.Query("confirm") == CONFIRM_CASCADE {
		return true
	}
	dependents, err := h.lookup.GetParticipants(c.Request.Context(), participantFilter, 1, 1)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return false
	}
	if dependents.Total > 0 {
		apihelpers.AbortWithError(c, apihelpers.Conflict("entity has participants, repeat with ?confirm=cascade to delete them too"))
		return false
	}
	return true
}

// removeStoredFiles deletes the content of file records removed by a cascade.
func (h *HttpEndpoints) removeStoredFiles(files []types.FileInfo) {
	for _, f := range files {
		if err := h.fileStore.Remove(f.Owner, f.Filename); err != nil {
			slog.Error("could not remove stored file", slog.String("fileID", f.ID.Hex()), slog.String("error", err.Error()))
		}
	}
}

func (h *HttpEndpoints) deleteSite(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	if !h.requireCascadeConfirmation(c, bson.M{"siteId": id}) {
		return
	}

	ctx := c.Request.Context()
	var result recruitmentDB.CascadeResult
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		result, err = h.recruitmentDBConn.DeleteSiteCascade(ctx, id)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_DELETE, types.SiteRef(id)).
			WithMeta("participantsDeleted", result.ParticipantsDeleted))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	h.removeStoredFiles(result.Files)

	slog.Info("site deleted", slog.String("siteID", id.Hex()), slog.Int64("participantsDeleted", result.ParticipantsDeleted), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, gin.H{
		"message":             "site deleted",
		"participantsDeleted": result.ParticipantsDeleted,
	})
}
