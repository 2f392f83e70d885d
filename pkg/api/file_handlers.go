package api

import (
	"net/http"

	"github.com/kasugai-cloud/aichat/pkg/files"
	"github.com/kasugai-cloud/aichat/pkg/httputil"
	"github.com/kasugai-cloud/aichat/pkg/middleware"
	"github.com/kasugai-cloud/aichat/pkg/models"
)

type uploadRequest struct {
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	MimeType    string `json:"mimeType"`
	FileData    string `json:"fileData"`
	Visibility  string `json:"visibility"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// uploadFile handles POST /files/upload
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	actor, _ := middleware.ActorFrom(r.Context())

	result, err := s.files.Upload(r.Context(), files.UploadInput{
		FileName:    req.FileName,
		FileType:    req.FileType,
		MimeType:    req.MimeType,
		DataBase64:  req.FileData,
		Actor:       actor,
		Visibility:  models.Visibility(req.Visibility),
		Category:    models.Category(req.Category),
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.FilesUploadedTotal.WithLabelValues(req.FileType, string(result.Status)).Inc()
	}
	httputil.WriteSuccess(w, result)
}

// listFiles handles GET /files
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	category := models.Category(httputil.ParseQueryString(r, "category", ""))

	list, err := s.files.List(r.Context(), actor, category)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"files": list})
}

// getFile handles GET /files/{id}
func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(r.Context())

	record, err := s.files.Get(r.Context(), fileID, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

// updateFileVisibility handles PUT /files/{id}
func (s *Server) updateFileVisibility(w http.ResponseWriter, r *http.Request) {
	fileID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req visibilityRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Visibility, "visibility") {
		return
	}
	actor, _ := middleware.ActorFrom(r.Context())

	record, err := s.files.UpdateVisibility(r.Context(), fileID, actor, models.Visibility(req.Visibility))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

// deleteFile handles DELETE /files/{id}
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(r.Context())

	if err := s.files.Delete(r.Context(), fileID, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"fileId": fileID, "status": "deleted"})
}

type fileQueryRequest struct {
	Question string `json:"question"`
}

// queryFile handles POST /files/{id}/query
func (s *Server) queryFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req fileQueryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	actor, _ := middleware.ActorFrom(r.Context())

	result, err := s.files.Query(r.Context(), fileID, actor, req.Question)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
