package http

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-press/internal/permissions"
	"github.com/goliatone/go-press/pkg/interfaces"
)

type previewPayload struct {
	Text string `json:"text"`
}

type previewResponse struct {
	HTML string `json:"html"`
}

// handlePreview renders staff input through the same pipeline as public
// pages so the preview matches what visitors will see.
func (api *API) handlePreview(w http.ResponseWriter, r *http.Request) {
	if api.markdown == nil {
		unavailable(w)
		return
	}
	if err := permissions.Require(r.Context(), permissions.MarkdownPreview); err != nil {
		api.fail(w, r, err)
		return
	}
	var payload previewPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{HTML: api.markdown.Render(payload.Text)})
}

// handleUpload stores the "file" part of a multipart form. The optional
// "prefix" field groups uploads, e.g. covers or tracks.
func (api *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if api.uploads == nil {
		unavailable(w)
		return
	}
	if err := permissions.Require(r.Context(), permissions.UploadsCreate); err != nil {
		api.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, api.maxUploadBytes)
	if err := r.ParseMultipartForm(api.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "too_large", Message: err.Error()})
			return
		}
		api.fail(w, r, badRequest("invalid multipart form: "+err.Error()))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.fail(w, r, badRequest("file field is required"))
		return
	}
	defer file.Close()

	ref, err := api.uploads.Put(r.Context(), interfaces.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Prefix:      r.FormValue("prefix"),
	})
	if err != nil {
		api.fail(w, r, err)
		return
	}
	api.logger.Info("http.upload.stored", "key", ref.Key, "size", ref.Size, "actor_id", permissions.ActorID(r.Context()))
	writeJSON(w, http.StatusCreated, ref)
}
