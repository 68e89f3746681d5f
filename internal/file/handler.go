package file

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/filestore/service/internal/provider"
	"github.com/filestore/service/internal/response"
)

// Handler holds HTTP handlers for the file endpoints.
type Handler struct {
	svc         *Service
	maxFiles    int
	maxFileSize int64
}

// NewHandler creates a new file Handler with the given upload limits.
func NewHandler(svc *Service, maxFiles int, maxFileSize int64) *Handler {
	return &Handler{svc: svc, maxFiles: maxFiles, maxFileSize: maxFileSize}
}

// ListResponse is the payload of the list endpoint.
type ListResponse struct {
	Files []File `json:"files"`
}

// FileResponse is the payload of the single-file endpoint.
type FileResponse struct {
	File File `json:"file"`
}

// List godoc
//
//	@Summary		List uploaded files
//	@Description	Returns files matching the given filters, newest first by default.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id				query	[]string	false	"file ids"	collectionFormat(multi)
//	@Param			provider		query	string		false	"storage provider"	Enums(minio, s3)
//	@Param			location		query	string		false	"exact path match"
//	@Param			mimetype		query	string		false	"exact mimetype match"
//	@Param			name			query	string		false	"case-insensitive name substring"
//	@Param			createdAtFrom	query	string		false	"RFC3339 lower bound (inclusive)"
//	@Param			createdAtTo		query	string		false	"RFC3339 upper bound (inclusive)"
//	@Param			sizeFrom		query	integer		false	"size lower bound (inclusive)"
//	@Param			sizeTo			query	integer		false	"size upper bound (inclusive)"
//	@Param			limit			query	integer		false	"page size"
//	@Param			offset			query	integer		false	"page offset"
//	@Param			order			query	string		false	"ordering by creation time"	Enums(asc, desc)
//	@Param			revalidate		query	boolean		false	"bypass the cache"
//	@Success		200	{object}	response.Envelope{data=ListResponse}
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Router			/files [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	revalidate := r.URL.Query().Get("revalidate") == "true"

	files, err := h.svc.FetchFiles(r.Context(), filter, revalidate)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, ListResponse{Files: files})
}

// Get godoc
//
//	@Summary		Fetch one uploaded file
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			fileID		path	string	true	"file id"
//	@Param			revalidate	query	boolean	false	"bypass the cache"
//	@Success		200	{object}	response.Envelope{data=FileResponse}
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/files/{fileID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(w, "invalid file id")
		return
	}
	revalidate := r.URL.Query().Get("revalidate") == "true"

	f, err := h.svc.FetchFile(r.Context(), id, revalidate)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "file not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, FileResponse{File: *f})
}

// Upload godoc
//
//	@Summary		Upload files
//	@Description	Stores each file with the chosen provider. One rejected file does not abort the batch; rejections are listed in the response.
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			files		formData	file	true	"files to upload"
//	@Param			provider	formData	string	true	"storage provider"	Enums(minio, s3)
//	@Param			path		formData	string	false	"logical location prefix"
//	@Success		201	{object}	response.Envelope{data=UploadResult}
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Router			/files [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	providerID, err := provider.ParseID(r.FormValue("provider"))
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	location := r.FormValue("path")

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		response.BadRequest(w, "no files in request")
		return
	}
	if len(headers) > h.maxFiles {
		response.BadRequest(w, fmt.Sprintf("too many files: limit is %d", h.maxFiles))
		return
	}

	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.maxFileSize {
			response.BadRequest(w, fmt.Sprintf("file %q exceeds the %d byte limit", fh.Filename, h.maxFileSize))
			return
		}
		part, err := fh.Open()
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("unreadable file %q", fh.Filename))
			return
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("unreadable file %q", fh.Filename))
			return
		}
		uploads = append(uploads, Upload{
			Name:     fh.Filename,
			Mimetype: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	result, err := h.svc.Upload(r.Context(), providerID, uploads, location)
	if err != nil {
		if errors.Is(err, ErrInvalidProvider) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, result)
}

// Delete godoc
//
//	@Summary		Delete files
//	@Description	Removes the metadata rows and schedules physical deletion at each backend.
//	@Tags			files
//	@Security		BearerAuth
//	@Param			id	query	[]string	true	"file ids"	collectionFormat(multi)
//	@Success		204
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Router			/files [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		response.BadRequest(w, "id is required")
		return
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			response.BadRequest(w, fmt.Sprintf("invalid file id %q", id))
			return
		}
	}

	if err := h.svc.Delete(r.Context(), ids); err != nil {
		response.InternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseFilter maps list query parameters onto a Filter.
func parseFilter(q url.Values) (Filter, error) {
	var f Filter

	for _, id := range q["id"] {
		if _, err := uuid.Parse(id); err != nil {
			return f, fmt.Errorf("invalid file id %q", id)
		}
		f.IDs = append(f.IDs, id)
	}

	if v := q.Get("provider"); v != "" {
		id, err := provider.ParseID(v)
		if err != nil {
			return f, err
		}
		f.Provider = id
	}

	f.Path = q.Get("location")
	f.Mimetype = q.Get("mimetype")
	f.Name = q.Get("name")

	if v := q.Get("createdAtFrom"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid createdAtFrom: %v", err)
		}
		f.CreatedFrom = &t
	}
	if v := q.Get("createdAtTo"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid createdAtTo: %v", err)
		}
		f.CreatedTo = &t
	}

	if v := q.Get("sizeFrom"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid sizeFrom: %v", err)
		}
		f.SizeFrom = &n
	}
	if v := q.Get("sizeTo"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid sizeTo: %v", err)
		}
		f.SizeTo = &n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = &n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
		f.Offset = &n
	}

	switch v := q.Get("order"); v {
	case "":
	case "asc":
		f.Order = OrderAsc
	case "desc":
		f.Order = OrderDesc
	default:
		return f, fmt.Errorf("invalid order %q", v)
	}

	return f, nil
}
