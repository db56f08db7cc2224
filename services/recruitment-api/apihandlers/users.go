package apihandlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/user-management/pwhash"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
	umUtils "github.com/case-framework/recruitment-backend/pkg/user-management/utils"
)

func (h *HttpEndpoints) AddUserManagementAPI(rg *gin.RouterGroup) {
	usersGroup := rg.Group("/users")
	usersGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	{
		usersGroup.GET("", mw.RequireRoles(types.ROLE_ADMIN), h.getUsers)
		usersGroup.POST("", mw.RequireRoles(types.ROLE_ADMIN), mw.RequirePayload(), h.createUser)
		usersGroup.GET("/:id", mw.RequireScope(types.ENTITY_TYPE_USER, "id", h.lookup), h.getUser)
		usersGroup.PUT("/:id", mw.RequireScope(types.ENTITY_TYPE_USER, "id", h.lookup), mw.RequirePayload(), h.updateUser)
		usersGroup.DELETE("/:id", mw.RequireRoles(types.ROLE_ADMIN), h.deactivateUser)
	}
}

func (h *HttpEndpoints) getUsers(c *gin.Context) {
	p := principalFromCtx(c)
	q, ok := h.paginationFromCtx(c, apihelpers.DEFAULT_PAGE_LIMIT)
	if !ok {
		return
	}

	filter := bson.M{}
	if role := types.Role(c.Query("role")); role != "" {
		if !role.IsValid() {
			apihelpers.AbortWithError(c, apihelpers.BadRequest("invalid role"))
			return
		}
		filter["role"] = role
	}
	if search := c.Query("search"); search != "" {
		filter["$or"] = recruitmentDB.SearchFilter(search, "name", "email")["$or"]
	}

	users, err := h.recruitmentDBConn.GetUsers(c.Request.Context(),
		permissionchecker.Restrict(permissionchecker.ScopeFilter(p, types.ENTITY_TYPE_USER), filter),
		q.Page, q.Limit,
	)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *HttpEndpoints) createUser(c *gin.Context) {
	p := principalFromCtx(c)

	var req userAccountReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	user, err := req.toUser()
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.checkOwnerExists(ctx, user); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	user, err = h.createUserAccount(ctx, p.UserID, user, req.Password)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("user created", slog.String("userID", user.ID.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusCreated, user)
}

func (h *HttpEndpoints) getUser(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	user, err := h.recruitmentDBConn.GetUserByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserReq struct {
	Name      *string     `json:"name"`
	Email     *string     `json:"email" binding:"omitempty,email"`
	Password  *string     `json:"password"`
	Role      *types.Role `json:"role" binding:"omitempty,oneof=admin sponsor site"`
	SponsorID *string     `json:"sponsorId"`
	SiteID    *string     `json:"siteId"`
	IsActive  *bool       `json:"isActive"`
}

func (req updateUserReq) changesAccess() bool {
	return req.Role != nil || req.SponsorID != nil || req.SiteID != nil || req.IsActive != nil
}

// applyTo returns the updated user and the fields to store.
func (req updateUserReq) applyTo(user types.User) (types.User, bson.M, error) {
	set := bson.M{}
	if req.Name != nil {
		user.Name = *req.Name
		set["name"] = user.Name
	}
	if req.Email != nil {
		user.Email = umUtils.SanitizeEmail(*req.Email)
		set["email"] = user.Email
	}
	if req.Password != nil {
		if msg := checkPassword(*req.Password); msg != "" {
			return user, nil, apihelpers.ValidationError(apihelpers.FieldError{Field: "password", Message: msg})
		}
		hash, err := pwhash.HashPassword(*req.Password)
		if err != nil {
			return user, nil, err
		}
		set["passwordHash"] = hash
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
		set["isActive"] = user.IsActive
	}

	if req.Role != nil || req.SponsorID != nil || req.SiteID != nil {
		if req.Role != nil {
			user.Role = *req.Role
		}
		ownerID := func(field string, v *string, current *primitive.ObjectID) (*primitive.ObjectID, error) {
			if v == nil {
				return current, nil
			}
			if *v == "" {
				return nil, nil
			}
			id, err := primitive.ObjectIDFromHex(*v)
			if err != nil {
				return nil, apihelpers.ValidationError(apihelpers.FieldError{Field: field, Message: "is invalid"})
			}
			return &id, nil
		}
		var err error
		if user.SponsorID, err = ownerID("sponsorId", req.SponsorID, user.SponsorID); err != nil {
			return user, nil, err
		}
		if user.SiteID, err = ownerID("siteId", req.SiteID, user.SiteID); err != nil {
			return user, nil, err
		}
		if err := user.ValidateOwnership(); err != nil {
			return user, nil, apihelpers.ValidationError(ownershipFieldError(err))
		}
		set["role"] = user.Role
		set["sponsorId"] = user.SponsorID
		set["siteId"] = user.SiteID
	}
	return user, set, nil
}

func (h *HttpEndpoints) updateUser(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	var req updateUserReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if !p.IsAdmin() && req.changesAccess() {
		slog.Warn("non-admin tried to change access fields", slog.String("userID", p.UserID.Hex()))
		apihelpers.AbortWithError(c, apihelpers.Forbidden())
		return
	}

	ctx := c.Request.Context()
	current, err := h.recruitmentDBConn.GetUserByID(ctx, id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	updated, set, err := req.applyTo(current)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if len(set) == 0 {
		c.JSON(http.StatusOK, current)
		return
	}
	if err := h.checkOwnerExists(ctx, updated); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	var user types.User
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		user, err = h.recruitmentDBConn.UpdateUser(ctx, id, set)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_UPDATE, types.UserRef(id)).
			WithMeta("fields", changedFields(set)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("user updated", slog.String("userID", id.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, user)
}

func (h *HttpEndpoints) deactivateUser(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	if id == p.UserID {
		apihelpers.AbortWithError(c, apihelpers.BadRequest("cannot deactivate own account"))
		return
	}

	ctx := c.Request.Context()
	var user types.User
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		user, err = h.recruitmentDBConn.UpdateUser(ctx, id, bson.M{"isActive": false})
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_DELETE, types.UserRef(id)).
			WithMeta("deactivated", true))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("user deactivated", slog.String("userID", id.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, user)
}

// changedFields lists the stored field names of an update without their values.
func changedFields(set bson.M) []string {
	fields := make([]string, 0, len(set))
	for k := range set {
		if k == "passwordHash" {
			k = "password"
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
