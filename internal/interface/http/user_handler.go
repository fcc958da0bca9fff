package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/flowery-users/internal/application"
	"github.com/oksasatya/flowery-users/internal/infrastructure/storage"
	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/response"
)

// DocumentsField is the multipart field carrying uploaded documents.
const DocumentsField = "documents"

type UserHandler struct {
	Svc    *userapp.Service
	Files  storage.Store
	Logger *logrus.Logger
	// AppURL prefixes the request path when building pagination links.
	AppURL string
}

func NewUserHandler(svc *userapp.Service, files storage.Store, logger *logrus.Logger, appURL string) *UserHandler {
	return &UserHandler{Svc: svc, Files: files, Logger: logger, AppURL: appURL}
}

// List handles GET /users?limit=&page=
func (h *UserHandler) List(c *gin.Context) {
	base := h.AppURL + c.Request.URL.Path
	page, err := h.Svc.ListUsers(c.Request.Context(), userapp.ListUsersQuery{
		Limit:   c.Query("limit"),
		Page:    c.Query("page"),
		BaseURL: &base,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "", page)
}

// Get handles GET /users/:email
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUserByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "user found", gin.H{"user": u})
}

// TogglePremium handles PUT /users/:email/premium
func (h *UserHandler) TogglePremium(c *gin.Context) {
	u, err := h.Svc.TogglePremium(c.Request.Context(), c.Param("email"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, fmt.Sprintf("user role changed to %s", u.Role), nil)
}

// UploadDocuments handles POST /users/:email/documents. Files are stored
// first; if the user update fails they are removed again.
func (h *UserHandler) UploadDocuments(c *gin.Context) {
	ctx := c.Request.Context()

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		headers = form.File[DocumentsField]
	}

	uploaded := make([]userapp.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		stored, err := h.save(c, fh)
		if err != nil {
			h.cleanup(c, uploaded)
			_ = c.Error(apperror.Wrap(err, "updateDocuments Error", "failed to store document"))
			return
		}
		uploaded = append(uploaded, userapp.UploadedFile{OriginalName: fh.Filename, StoredName: stored})
	}

	u, err := h.Svc.AppendDocuments(ctx, c.Param("email"), uploaded)
	if err != nil {
		h.cleanup(c, uploaded)
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "documents uploaded", gin.H{"userDocuments": userapp.ToUserDTO(u).Documents})
}

func (h *UserHandler) save(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return h.Files.Save(c.Request.Context(), fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
}

func (h *UserHandler) cleanup(c *gin.Context, files []userapp.UploadedFile) {
	for _, f := range files {
		if err := h.Files.Delete(c.Request.Context(), f.StoredName); err != nil && h.Logger != nil {
			h.Logger.WithError(err).WithField("file", f.StoredName).Warn("orphan document cleanup failed")
		}
	}
}

// SweepInactive handles DELETE /users
func (h *UserHandler) SweepInactive(c *gin.Context) {
	users, err := h.Svc.SweepInactiveUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, fmt.Sprintf("%d inactive users deleted", len(users)), gin.H{"users": users})
}
