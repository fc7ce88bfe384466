package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/utils"
)

const (
	maxPhotosPerRequest = 10
	maxPhotoBytes       = 10 << 20
	defaultPageSize     = 50
	maxPageSize         = 200
)

type entryRequest struct {
	Title          *string   `json:"title,omitempty" example:"Morning"`
	Content        *string   `json:"content,omitempty" example:"Walked to the lake."`
	Tags           *[]string `json:"tags,omitempty"`
	RemovePhotoIDs []string  `json:"remove_photo_ids,omitempty"`
}

type entriesResponse struct {
	Success bool                 `json:"success"`
	Entries []services.EntryView `json:"entries"`
	Count   int                  `json:"count"`
}

type entryResponse struct {
	Success  bool                `json:"success"`
	Entry    *services.EntryView `json:"entry"`
	Warnings []string            `json:"warnings,omitempty"`
}

// ListEntries godoc
// @Summary List journal entries
// @Description Entries of the authenticated user, newest first, with optional tag, text and date filters
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param tag query string false "Tag"
// @Param q query string false "Text search over title and content"
// @Param from query string false "First entry date (YYYY-MM-DD)"
// @Param to query string false "Last entry date (YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} entriesResponse
// @Failure 400 {object} errorResponse
// @Router /entries [get]
func (s *Server) ListEntries(c echo.Context) error {
	f := services.ListFilter{
		Tag:   c.QueryParam("tag"),
		Query: c.QueryParam("q"),
		From:  c.QueryParam("from"),
		To:    c.QueryParam("to"),
		Limit: defaultPageSize,
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(utils.DateLayout, d); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Dates must be formatted as YYYY-MM-DD"})
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid limit"})
		}
		f.Limit = min(n, maxPageSize)
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid offset"})
		}
		f.Offset = n
	}

	entries, err := s.Journal.List(c.Request().Context(), currentUser(c).ID, f)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, entriesResponse{Success: true, Entries: entries, Count: len(entries)})
}

// GetEntry godoc
// @Summary Get a journal entry
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 200 {object} entryResponse
// @Failure 404 {object} errorResponse
// @Router /entries/{id} [get]
func (s *Server) GetEntry(c echo.Context) error {
	entry, err := s.Journal.Get(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, entryResponse{Success: true, Entry: entry})
}

// CreateEntry godoc
// @Summary Create a journal entry
// @Description JSON body, or multipart form with title, content, tags and photos files
// @Tags Entries
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body entryRequest false "Entry"
// @Success 201 {object} entryResponse
// @Failure 400 {object} errorResponse
// @Router /entries [post]
func (s *Server) CreateEntry(c echo.Context) error {
	req, uploads, closeAll, err := s.readEntryRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	defer closeAll()

	in := services.CreateEntryInput{Source: models.SourceWeb, Photos: uploads}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}

	res, err := s.Journal.Create(c.Request().Context(), currentUser(c), in)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, entryResponse{Success: true, Entry: res.Entry, Warnings: res.Warnings})
}

// UpdateEntry godoc
// @Summary Update a journal entry
// @Description Omitted fields are unchanged. Photo removals and uploads that fail are reported in warnings.
// @Tags Entries
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Param request body entryRequest true "Changes"
// @Success 200 {object} entryResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /entries/{id} [put]
func (s *Server) UpdateEntry(c echo.Context) error {
	req, uploads, closeAll, err := s.readEntryRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	defer closeAll()

	res, err := s.Journal.Update(c.Request().Context(), currentUser(c).ID, c.Param("id"), services.UpdateEntryInput{
		Title:          req.Title,
		Content:        req.Content,
		Tags:           req.Tags,
		RemovePhotoIDs: req.RemovePhotoIDs,
		AddPhotos:      uploads,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, entryResponse{Success: true, Entry: res.Entry, Warnings: res.Warnings})
}

// DeleteEntry godoc
// @Summary Delete a journal entry and its photos
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 200 {object} simpleResponse
// @Failure 404 {object} errorResponse
// @Router /entries/{id} [delete]
func (s *Server) DeleteEntry(c echo.Context) error {
	if err := s.Journal.Delete(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Entry deleted"})
}

// DeletePhoto godoc
// @Summary Remove one photo from an entry
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Param photoId path string true "Photo ID"
// @Success 200 {object} simpleResponse
// @Failure 404 {object} errorResponse
// @Router /entries/{id}/photos/{photoId} [delete]
func (s *Server) DeletePhoto(c echo.Context) error {
	if err := s.Journal.RemovePhoto(c.Request().Context(), currentUser(c).ID, c.Param("id"), c.Param("photoId")); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Photo removed"})
}

// readEntryRequest accepts JSON or multipart. Multipart fields that are
// absent stay nil so updates leave them alone. The returned func closes
// every opened upload.
func (s *Server) readEntryRequest(c echo.Context) (entryRequest, []services.PhotoUpload, func(), error) {
	var req entryRequest
	noop := func() {}

	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
			return req, nil, noop, errors.New("malformed request")
		}
		return req, nil, noop, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, nil, noop, errors.New("malformed multipart form")
	}
	if v, ok := form.Value["title"]; ok && len(v) > 0 {
		req.Title = &v[0]
	}
	if v, ok := form.Value["content"]; ok && len(v) > 0 {
		req.Content = &v[0]
	}
	if v, ok := form.Value["tags"]; ok {
		tags := splitList(v)
		req.Tags = &tags
	}
	if v, ok := form.Value["remove_photo_ids"]; ok {
		req.RemovePhotoIDs = splitList(v)
	}

	files := form.File["photos"]
	if len(files) > maxPhotosPerRequest {
		return req, nil, noop, fmt.Errorf("At most %d photos per request", maxPhotosPerRequest)
	}
	var closers []io.Closer
	closeAll := func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}
	uploads := make([]services.PhotoUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxPhotoBytes {
			closeAll()
			return req, nil, noop, fmt.Errorf("Photo %s exceeds %d MB", fh.Filename, maxPhotoBytes>>20)
		}
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return req, nil, noop, fmt.Errorf("could not read photo %s", fh.Filename)
		}
		closers = append(closers, f)
		uploads = append(uploads, services.PhotoUpload{
			FileName:    fh.Filename,
			ContentType: photoContentType(fh),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return req, uploads, closeAll, nil
}

// splitList accepts repeated form values and comma-separated ones.
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func photoContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get(echo.HeaderContentType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
