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

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
)

func (h *HttpEndpoints) AddSponsorsAPI(rg *gin.RouterGroup) {
	sponsorsGroup := rg.Group("/sponsors")
	sponsorsGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	sponsorsGroup.Use(mw.RequireRoles(types.ROLE_ADMIN, types.ROLE_SPONSOR))
	{
		sponsorsGroup.GET("", h.getSponsors)
		sponsorsGroup.POST("", mw.RequireRoles(types.ROLE_ADMIN), mw.RequirePayload(), h.createSponsor)
		sponsorsGroup.GET("/:id", mw.RequireScope(types.ENTITY_TYPE_SPONSOR, "id", h.lookup), h.getSponsor)
		sponsorsGroup.PUT("/:id", mw.RequireScope(types.ENTITY_TYPE_SPONSOR, "id", h.lookup), mw.RequirePayload(), h.updateSponsor)
		sponsorsGroup.DELETE("/:id", mw.RequireRoles(types.ROLE_ADMIN), h.deleteSponsor)
	}
}

func (h *HttpEndpoints) getSponsors(c *gin.Context) {
	p := principalFromCtx(c)
	q, ok := h.paginationFromCtx(c, apihelpers.DEFAULT_PAGE_LIMIT)
	if !ok {
		return
	}

	filter := bson.M{}
	if search := c.Query("search"); search != "" {
		filter = recruitmentDB.SearchFilter(search, "name", "companyEmail")
	}

	sponsors, err := h.recruitmentDBConn.GetSponsors(c.Request.Context(),
		permissionchecker.Restrict(permissionchecker.ScopeFilter(p, types.ENTITY_TYPE_SPONSOR), filter),
		q.Page, q.Limit,
	)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sponsors)
}

type createSponsorReq struct {
	Name         string `json:"name" binding:"required"`
	CompanyEmail string `json:"companyEmail" binding:"required,email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

func (h *HttpEndpoints) createSponsor(c *gin.Context) {
	p := principalFromCtx(c)

	var req createSponsorReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	sponsor := types.Sponsor{
		Name:         req.Name,
		CompanyEmail: req.CompanyEmail,
		Phone:        req.Phone,
		Address:      req.Address,
	}

	ctx := c.Request.Context()
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		sponsor, err = h.recruitmentDBConn.CreateSponsor(ctx, sponsor)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_CREATE, types.SponsorRef(sponsor.ID)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("sponsor created", slog.String("sponsorID", sponsor.ID.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusCreated, sponsor)
}

func (h *HttpEndpoints) getSponsor(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	sponsor, err := h.recruitmentDBConn.GetSponsorByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sponsor)
}

type updateSponsorReq struct {
	Name         *string `json:"name" bson:"name,omitempty"`
	CompanyEmail *string `json:"companyEmail" bson:"companyEmail,omitempty" binding:"omitempty,email"`
	Phone        *string `json:"phone" bson:"phone,omitempty"`
	Address      *string `json:"address" bson:"address,omitempty"`
}

func (h *HttpEndpoints) updateSponsor(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req updateSponsorReq
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
	var sponsor types.Sponsor
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		sponsor, err = h.recruitmentDBConn.UpdateSponsor(ctx, id, set)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.SponsorRef(id)).
			WithMeta("fields", changedFields(set)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sponsor)
}

func (h *HttpEndpoints) deleteSponsor(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		if err := h.recruitmentDBConn.DeleteSponsor(ctx, id); err != nil {
			return err
		}
		if _, err := h.recruitmentDBConn.DeactivateUsersOf(ctx, types.SponsorRef(id)); err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_DELETE, types.SponsorRef(id)))
	})
	if err != nil {
		if errors.Is(err, recruitmentDB.ErrHasDependents) {
			apihelpers.AbortWithError(c, apihelpers.Conflict("sponsor still has studies or sites"))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("sponsor deleted", slog.String("sponsorID", id.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, gin.H{"message": "sponsor deleted"})
}
