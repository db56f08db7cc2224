package apihandlers

import (
	"context"
	"net/http"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/filestore"
	"github.com/case-framework/recruitment-backend/pkg/messaging/templates"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/workflow"
	smtpclient "github.com/case-framework/recruitment-backend/pkg/smtp-client"
	"github.com/gin-gonic/gin"

	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

type UploadConfig struct {
	MaxFileSize      int64
	MaxFiles         int
	AllowedMimeTypes []string
}

// recordLookup holds the reads used by access and dependency checks before a request writes anything.
type recordLookup interface {
	OwnershipOf(ctx context.Context, ref types.EntityRef) (permissionchecker.Ownership, error)
	GetStudyByID(ctx context.Context, id primitive.ObjectID) (types.Study, error)
	GetSiteByID(ctx context.Context, id primitive.ObjectID) (types.Site, error)
	GetParticipants(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.Participant], error)
}

type HttpEndpoints struct {
	recruitmentDBConn       *recruitmentDB.RecruitmentDBService
	lookup                  recordLookup
	stateMachine            *workflow.StateMachine
	fileStore               *filestore.DiskStore
	uploadConfig            UploadConfig
	mailer                  smtpclient.Mailer
	messageTemplates        templates.TemplateSet
	proposalInbox           []string
	tokenSignKey            string
	tokenExpiresIn          time.Duration
	allowPublicRegistration bool
}

func NewHTTPHandler(
	tokenSignKey string,
	tokenExpiresIn time.Duration,
	recruitmentDBConn *recruitmentDB.RecruitmentDBService,
	transitions workflow.TransitionTable,
	fileStore *filestore.DiskStore,
	uploadConfig UploadConfig,
	mailer smtpclient.Mailer,
	messageTemplates templates.TemplateSet,
	proposalInbox []string,
	allowPublicRegistration bool,
) *HttpEndpoints {
	h := &HttpEndpoints{
		recruitmentDBConn:       recruitmentDBConn,
		fileStore:               fileStore,
		uploadConfig:            uploadConfig,
		mailer:                  mailer,
		messageTemplates:        messageTemplates,
		proposalInbox:           proposalInbox,
		tokenSignKey:            tokenSignKey,
		tokenExpiresIn:          tokenExpiresIn,
		allowPublicRegistration: allowPublicRegistration,
	}
	if recruitmentDBConn != nil {
		h.lookup = recruitmentDBConn
		h.stateMachine = workflow.NewStateMachine(
			transitions,
			workflow.DefaultAutomations(),
			recruitmentDBConn.TransitionUnitOfWork(),
		)
	}
	return h
}
