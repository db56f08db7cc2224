package apihandlers

import (
	"net/http"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

func (h *HttpEndpoints) AddEventLogsAPI(rg *gin.RouterGroup) {
	eventLogsGroup := rg.Group("/event-logs")
	eventLogsGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	eventLogsGroup.Use(mw.RequireRoles(types.ROLE_ADMIN))
	{
		eventLogsGroup.GET("", h.getEventLogs)
	}
}

func eventLogFilter(c *gin.Context) (bson.M, error) {
	filter := bson.M{}
	if entityType := c.Query("entityType"); entityType != "" {
		t := types.EntityType(entityType)
		if !t.IsValid() {
			return nil, apihelpers.BadRequest("invalid entityType")
		}
		filter["subject.entityType"] = t
	}
	if err := addObjectIDQueryFilter(c, filter, "entityId", "subject.entityId"); err != nil {
		return nil, err
	}
	if err := addObjectIDQueryFilter(c, filter, "actorId", "actorId"); err != nil {
		return nil, err
	}
	if action := c.Query("action"); action != "" {
		filter["action"] = types.EventAction(action)
	}
	return filter, nil
}

func (h *HttpEndpoints) getEventLogs(c *gin.Context) {
	q, ok := h.paginationFromCtx(c, apihelpers.DEFAULT_PAGE_LIMIT)
	if !ok {
		return
	}
	filter, err := eventLogFilter(c)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	logs, err := h.recruitmentDBConn.GetEventLogs(c.Request.Context(), filter, q.Page, q.Limit)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
