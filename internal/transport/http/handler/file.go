package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/internal/app"
	"docchat/internal/storage"
	"docchat/internal/transport/http/response"
)

type FileHandler struct {
	fileService *app.FileService
}

func NewFileHandler(fileService *app.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) List(c *gin.Context) {
	files, err := h.fileService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list files failed")
		return
	}
	if files == nil {
		files = []string{}
	}
	response.OK(c, files)
}

// Upload accepts a multipart form with one or more "files" parts. Files are
// stored one at a time; a failed file shows up in its own result entry and
// does not abort the rest of the batch.
func (h *FileHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files in request")
		return
	}

	items := make([]app.UploadItem, 0, len(headers))
	for _, fh := range headers {
		items = append(items, app.UploadItem{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	results, err := h.fileService.UploadBatch(c.Request.Context(), c.Param("id"), items)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTooManyFiles):
			response.Error(c, http.StatusBadRequest, response.CodeTooManyFiles, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid upload request")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}
	response.OK(c, results)
}

func (h *FileHandler) Delete(c *gin.Context) {
	err := h.fileService.Delete(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
			return
		}
		if errors.Is(err, storage.ErrFileNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeFileNotFound, "file not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete file failed")
		return
	}
	response.OK(c, gin.H{"deleted_file": c.Param("name")})
}
