package apihandlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/case-framework/recruitment-backend/pkg/jwt-handling"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/user-management/pwhash"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	umUtils "github.com/case-framework/recruitment-backend/pkg/user-management/utils"
)

func (h *HttpEndpoints) AddAuthAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", mw.RequirePayload(), h.registerUser)
		authGroup.POST("/login", mw.RequirePayload(), h.loginUser)
		authGroup.GET("/me", mw.GetAndValidateUserJWT(h.tokenSignKey), h.getCurrentUser)
	}
}

type userAccountReq struct {
	Name      string     `json:"name" binding:"required"`
	Email     string     `json:"email" binding:"required,email"`
	Password  string     `json:"password" binding:"required"`
	Role      types.Role `json:"role" binding:"required,oneof=admin sponsor site"`
	SponsorID string     `json:"sponsorId"`
	SiteID    string     `json:"siteId"`
}

// toUser checks the request without touching the database.
func (req userAccountReq) toUser() (types.User, error) {
	details := []apihelpers.FieldError{}

	email := umUtils.SanitizeEmail(req.Email)
	if !umUtils.CheckEmailFormat(email) {
		details = append(details, apihelpers.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if msg := checkPassword(req.Password); msg != "" {
		details = append(details, apihelpers.FieldError{Field: "password", Message: msg})
	}

	user := types.User{
		Name:     req.Name,
		Email:    email,
		Role:     req.Role,
		IsActive: true,
	}
	if req.SponsorID != "" {
		id, err := primitive.ObjectIDFromHex(req.SponsorID)
		if err != nil {
			details = append(details, apihelpers.FieldError{Field: "sponsorId", Message: "is invalid"})
		} else {
			user.SponsorID = &id
		}
	}
	if req.SiteID != "" {
		id, err := primitive.ObjectIDFromHex(req.SiteID)
		if err != nil {
			details = append(details, apihelpers.FieldError{Field: "siteId", Message: "is invalid"})
		} else {
			user.SiteID = &id
		}
	}

	if len(details) == 0 {
		if err := user.ValidateOwnership(); err != nil {
			details = append(details, ownershipFieldError(err))
		}
	}

	if len(details) > 0 {
		return user, apihelpers.ValidationError(details...)
	}
	return user, nil
}

func checkPassword(password string) string {
	if !umUtils.CheckPasswordFormat(password) {
		return "must be 8 to 72 characters and contain three of: lower case, upper case, digit, symbol"
	}
	if umUtils.IsPasswordOnBlocklist(password) {
		return "is too common"
	}
	return ""
}

func ownershipFieldError(err error) apihelpers.FieldError {
	switch {
	case errors.Is(err, types.ErrSponsorIDRequired):
		return apihelpers.FieldError{Field: "sponsorId", Message: "is required for sponsor users"}
	case errors.Is(err, types.ErrSiteIDRequired):
		return apihelpers.FieldError{Field: "siteId", Message: "is required for site users"}
	case errors.Is(err, types.ErrInvalidRole):
		return apihelpers.FieldError{Field: "role", Message: "is invalid"}
	}
	return apihelpers.FieldError{Field: "role", Message: "does not match the given sponsorId/siteId"}
}

// checkOwnerExists makes sure the sponsor or site referenced by the user is stored.
func (h *HttpEndpoints) checkOwnerExists(ctx context.Context, user types.User) error {
	var err error
	field := ""
	switch {
	case user.SponsorID != nil:
		field = "sponsorId"
		_, err = h.recruitmentDBConn.GetSponsorByID(ctx, *user.SponsorID)
	case user.SiteID != nil:
		field = "siteId"
		_, err = h.recruitmentDBConn.GetSiteByID(ctx, *user.SiteID)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apihelpers.ValidationError(apihelpers.FieldError{Field: field, Message: "does not exist"})
	}
	return err
}

// createUserAccount stores the user, registers it at its sponsor or site and logs the creation.
func (h *HttpEndpoints) createUserAccount(ctx context.Context, actorID primitive.ObjectID, user types.User, password string) (types.User, error) {
	if _, err := h.recruitmentDBConn.GetUserByEmail(ctx, user.Email); err == nil {
		return user, apihelpers.Conflict("email already registered")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return user, err
	}

	hash, err := pwhash.HashPassword(password)
	if err != nil {
		return user, err
	}
	user.PasswordHash = hash

	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		user, err = h.recruitmentDBConn.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		switch {
		case user.SponsorID != nil:
			err = h.recruitmentDBConn.AddSponsorAdmin(ctx, *user.SponsorID, user.ID)
		case user.SiteID != nil:
			err = h.recruitmentDBConn.AddSiteUser(ctx, *user.SiteID, user.ID)
		}
		if err != nil {
			return err
		}

		if actorID.IsZero() {
			actorID = user.ID
		}
		entry := types.NewEventLog(actorID, types.EVENT_ACTION_CREATE, types.UserRef(user.ID)).
			WithMeta("role", string(user.Role))
		return h.logEvent(ctx, entry)
	})
	return user, err
}

func (h *HttpEndpoints) issueToken(user types.User) (string, error) {
	sponsorID, siteID := "", ""
	if user.SponsorID != nil {
		sponsorID = user.SponsorID.Hex()
	}
	if user.SiteID != nil {
		siteID = user.SiteID.Hex()
	}
	return jwthandling.GenerateNewUserToken(
		h.tokenExpiresIn,
		user.ID.Hex(),
		string(user.Role),
		sponsorID,
		siteID,
		user.Email,
		user.Name,
		h.tokenSignKey,
	)
}

func (h *HttpEndpoints) registerUser(c *gin.Context) {
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
	userCount, err := h.recruitmentDBConn.CountUsers(ctx)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	// the first account of an empty installation must be an admin
	isBootstrap := userCount == 0 && user.Role == types.ROLE_ADMIN
	if !isBootstrap && (user.Role == types.ROLE_ADMIN || !h.allowPublicRegistration) {
		slog.Warn("registration rejected", slog.String("email", umUtils.BlurEmailAddress(user.Email)), slog.String("role", string(user.Role)))
		apihelpers.AbortWithError(c, apihelpers.Forbidden())
		return
	}

	if err := h.checkOwnerExists(ctx, user); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	user, err = h.createUserAccount(ctx, primitive.NilObjectID, user, req.Password)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("user registered", slog.String("userID", user.ID.Hex()), slog.String("role", string(user.Role)))
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *HttpEndpoints) loginUser(c *gin.Context) {
	var req loginReq
	if err := apihelpers.BindJSON(c, &req); err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	email := umUtils.SanitizeEmail(req.Email)

	user, err := h.recruitmentDBConn.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			slog.Warn("login with unknown email", slog.String("email", umUtils.BlurEmailAddress(email)))
			apihelpers.AbortWithError(c, apihelpers.Unauthorized("invalid email or password"))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}

	if err := pwhash.ComparePasswordWithHash(user.PasswordHash, req.Password); err != nil {
		slog.Warn("login with wrong password", slog.String("userID", user.ID.Hex()))
		apihelpers.AbortWithError(c, apihelpers.Unauthorized("invalid email or password"))
		return
	}

	if !user.IsActive {
		slog.Warn("login of deactivated user", slog.String("userID", user.ID.Hex()))
		apihelpers.AbortWithError(c, apihelpers.Unauthorized("account is deactivated"))
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		if err := h.recruitmentDBConn.UpdateUserLastLogin(ctx, user.ID); err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(user.ID, types.EVENT_ACTION_LOGIN, types.UserRef(user.ID)))
	})
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("user logged in", slog.String("userID", user.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (h *HttpEndpoints) getCurrentUser(c *gin.Context) {
	p := principalFromCtx(c)

	user, err := h.recruitmentDBConn.GetUserByID(c.Request.Context(), p.UserID)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
