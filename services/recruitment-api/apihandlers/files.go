package apihandlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	"github.com/case-framework/recruitment-backend/pkg/filestore"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	UPLOAD_FORM_FIELD      = "file"
	UPLOAD_PURPOSE_CONSENT = "consent"
)

func (h *HttpEndpoints) AddFilesAPI(rg *gin.RouterGroup) {
	filesGroup := rg.Group("/files")
	filesGroup.Use(mw.GetAndValidateUserJWT(h.tokenSignKey))
	{
		participantFilesGroup := filesGroup.Group("/participants/:id")
		participantFilesGroup.Use(mw.RequireScope(types.ENTITY_TYPE_PARTICIPANT, "id", h.lookup))
		{
			participantFilesGroup.GET("", h.getParticipantFiles)
			participantFilesGroup.POST("/upload", h.uploadParticipantFiles)
		}

		filesGroup.GET("/download/:fileId", mw.RequireScope(types.ENTITY_TYPE_FILE, "fileId", h.lookup), h.downloadFile)
		filesGroup.DELETE("/:fileId", mw.RequireScope(types.ENTITY_TYPE_FILE, "fileId", h.lookup), h.deleteFile)
	}
}

// uploadError maps upload validation failures to a field error on the form field.
func uploadError(filename string, err error) error {
	switch {
	case errors.Is(err, utils.ErrEmptyFile):
		return apihelpers.ValidationError(apihelpers.FieldError{Field: UPLOAD_FORM_FIELD, Message: filename + ": file is empty"})
	case errors.Is(err, utils.ErrFileTooLarge):
		return apihelpers.ValidationError(apihelpers.FieldError{Field: UPLOAD_FORM_FIELD, Message: filename + ": file too large"})
	case errors.Is(err, utils.ErrInvalidFileType):
		return apihelpers.ValidationError(apihelpers.FieldError{Field: UPLOAD_FORM_FIELD, Message: filename + ": file type not allowed"})
	}
	return err
}

type validatedUpload struct {
	header   *multipart.FileHeader
	mimeType string
}

// validateUploads checks every part before anything is written to disk.
func validateUploads(files []*multipart.FileHeader, conf UploadConfig) ([]validatedUpload, error) {
	if len(files) == 0 {
		return nil, apihelpers.ValidationError(apihelpers.FieldError{Field: UPLOAD_FORM_FIELD, Message: "is required"})
	}
	if conf.MaxFiles > 0 && len(files) > conf.MaxFiles {
		return nil, apihelpers.ValidationError(apihelpers.FieldError{Field: UPLOAD_FORM_FIELD, Message: "too many files"})
	}

	uploads := make([]validatedUpload, 0, len(files))
	for _, fh := range files {
		mimeType, err := utils.ValidateUpload(fh, conf.MaxFileSize, conf.AllowedMimeTypes)
		if err != nil {
			return nil, uploadError(fh.Filename, err)
		}
		uploads = append(uploads, validatedUpload{header: fh, mimeType: mimeType})
	}
	return uploads, nil
}

func (h *HttpEndpoints) uploadParticipantFiles(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}

	if h.uploadConfig.MaxFileSize > 0 {
		limit := h.uploadConfig.MaxFileSize * int64(max(h.uploadConfig.MaxFiles, 1))
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+(1<<20))
	}
	form, err := c.MultipartForm()
	if err != nil {
		apihelpers.AbortWithError(c, apihelpers.BadRequest("invalid multipart form"))
		return
	}

	uploads, err := validateUploads(form.File[UPLOAD_FORM_FIELD], h.uploadConfig)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}

	owner := types.ParticipantRef(id)
	infos := make([]types.FileInfo, 0, len(uploads))
	for _, u := range uploads {
		stored, err := h.fileStore.SaveUpload(owner, utils.GetFileExtensionFromContentType(u.mimeType), u.header)
		if err != nil {
			h.removeStoredFiles(infos)
			apihelpers.AbortWithError(c, err)
			return
		}
		infos = append(infos, types.FileInfo{
			Owner:        owner,
			Filename:     stored.Filename,
			OriginalName: u.header.Filename,
			MimeType:     u.mimeType,
			Size:         stored.Size,
			StorageURL:   stored.StorageURL,
			UploadedBy:   p.UserID,
		})
	}

	isConsent := c.Query("purpose") == UPLOAD_PURPOSE_CONSENT
	ctx := c.Request.Context()
	err = h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		for i := range infos {
			info, err := h.recruitmentDBConn.CreateFileInfo(ctx, infos[i])
			if err != nil {
				return err
			}
			infos[i] = info
		}
		if isConsent {
			receivedAt := time.Now()
			if _, err := h.recruitmentDBConn.SetParticipantConsent(ctx, id, types.Consent{
				FileURL:    infos[0].StorageURL,
				ReceivedAt: &receivedAt,
			}); err != nil {
				return err
			}
		}
		for _, entry := range uploadEventLogs(p.UserID, id, infos, isConsent) {
			if err := h.logEvent(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.removeStoredFiles(infos)
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("files uploaded", slog.String("participantID", id.Hex()), slog.Int("count", len(infos)), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusCreated, gin.H{"files": infos})
}

// uploadEventLogs returns one FILE_UPLOAD entry per stored file and, for a consent upload,
// the UPDATE of the participant whose consent was set.
func uploadEventLogs(actorID primitive.ObjectID, participantID primitive.ObjectID, infos []types.FileInfo, isConsent bool) []types.EventLog {
	entries := make([]types.EventLog, 0, len(infos)+1)
	for _, info := range infos {
		entries = append(entries, types.NewEventLog(actorID, types.EVENT_ACTION_FILE_UPLOAD, types.FileRef(info.ID)).
			WithMeta("participantId", participantID.Hex()).
			WithMeta("originalName", info.OriginalName).
			WithMeta("size", info.Size))
	}
	if isConsent && len(infos) > 0 {
		entries = append(entries, types.NewEventLog(actorID, types.EVENT_ACTION_UPDATE, types.ParticipantRef(participantID)).
			WithMeta("fields", []string{"consent"}).
			WithMeta("fileId", infos[0].ID.Hex()))
	}
	return entries
}

func (h *HttpEndpoints) getParticipantFiles(c *gin.Context) {
	id, ok := idFromParam(c, "id")
	if !ok {
		return
	}
	files, err := h.recruitmentDBConn.GetFileInfosForOwner(c.Request.Context(), types.ParticipantRef(id))
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *HttpEndpoints) downloadFile(c *gin.Context) {
	id, ok := idFromParam(c, "fileId")
	if !ok {
		return
	}

	info, err := h.recruitmentDBConn.GetFileInfoByID(c.Request.Context(), id)
	if err != nil {
		apihelpers.AbortWithError(c, err)
		return
	}
	if info.IsDeleted() {
		apihelpers.AbortWithError(c, apihelpers.NotFound("file not found"))
		return
	}

	path, err := h.fileStore.Path(info.Owner, info.Filename)
	if err != nil {
		if errors.Is(err, filestore.ErrInvalidFilename) {
			apihelpers.AbortWithError(c, apihelpers.NotFound("file not found"))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}
	c.FileAttachment(path, info.OriginalName)
}

func (h *HttpEndpoints) deleteFile(c *gin.Context) {
	p := principalFromCtx(c)
	id, ok := idFromParam(c, "fileId")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var info types.FileInfo
	err := h.recruitmentDBConn.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		info, err = h.recruitmentDBConn.SoftDeleteFileInfo(ctx, id)
		if err != nil {
			return err
		}
		return h.logEvent(ctx, types.NewEventLog(p.UserID, types.EVENT_ACTION_DELETE, types.FileRef(id)).
			WithMeta("participantId", info.Owner.ID.Hex()))
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apihelpers.AbortWithError(c, apihelpers.NotFound("file not found"))
			return
		}
		apihelpers.AbortWithError(c, err)
		return
	}

	slog.Info("file deleted", slog.String("fileID", id.Hex()), slog.String("by", p.UserID.Hex()))
	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}
