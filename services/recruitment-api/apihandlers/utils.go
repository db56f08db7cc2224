package apihandlers

import (
	"context"
	"log/slog"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func principalFromCtx(c *gin.Context) permissionchecker.Principal {
	return c.MustGet(apihelpers.CTX_PRINCIPAL).(permissionchecker.Principal)
}

// idFromParam reads an ObjectID path parameter. On failure the request is aborted with 400.
func idFromParam(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		apihelpers.AbortWithError(c, apihelpers.BadRequest("invalid "+param))
		return primitive.NilObjectID, false
	}
	return id, true
}

// addObjectIDQueryFilter copies an optional ObjectID query parameter into filter under field.
func addObjectIDQueryFilter(c *gin.Context, filter bson.M, queryKey string, field string) error {
	v := c.Query(queryKey)
	if v == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(v)
	if err != nil {
		return apihelpers.BadRequest("invalid " + queryKey)
	}
	filter[field] = id
	return nil
}

// toUpdateDoc converts a request struct with optional (pointer, omitempty) fields into a $set document.
func toUpdateDoc(req any) (bson.M, error) {
	raw, err := bson.Marshal(req)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// canAccess applies the scope guard to an entity that is not addressed by the request path.
func (h *HttpEndpoints) canAccess(ctx context.Context, p permissionchecker.Principal, ref types.EntityRef) bool {
	if p.IsAdmin() {
		return true
	}
	ownership, err := h.lookup.OwnershipOf(ctx, ref)
	if err != nil {
		slog.Warn("ownership lookup failed", slog.String("ref", ref.String()), slog.String("error", err.Error()))
		return false
	}
	return permissionchecker.CanAccess(p, ref, ownership)
}

func (h *HttpEndpoints) logEvent(ctx context.Context, entry types.EventLog) error {
	return h.recruitmentDBConn.AppendEventLog(ctx, entry)
}

func (h *HttpEndpoints) paginationFromCtx(c *gin.Context, defaultLimit int64) (*apihelpers.PaginatedQuery, bool) {
	q, err := apihelpers.ParsePaginatedQueryFromCtx(c, defaultLimit)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return nil, false
	}
	return q, true
}
