package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/library"
)

type itemPayload struct {
	Title       string  `json:"title"`
	Slug        string  `json:"slug,omitempty"`
	Kind        string  `json:"kind"`
	Status      string  `json:"status,omitempty"`
	Description string  `json:"description"`
	File        *string `json:"file,omitempty"`
	VideoURL    string  `json:"video_url,omitempty"`
	CoverImage  *string `json:"cover_image,omitempty"`
}

type trackPayload struct {
	Title     string `json:"title"`
	Order     int    `json:"order"`
	AudioFile string `json:"audio_file"`
}

type publicTrack struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	AudioFile string    `json:"audio_file"`
}

type publicItem struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Kind        string        `json:"kind"`
	HTML        string        `json:"html"`
	File        string        `json:"file,omitempty"`
	VideoURL    string        `json:"video_url,omitempty"`
	CoverImage  string        `json:"cover_image,omitempty"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	Tracks      []publicTrack `json:"tracks,omitempty"`
}

func (api *API) publicItem(item *library.MediaItem) publicItem {
	view := publicItem{
		ID:          item.ID,
		Title:       item.Title,
		Slug:        item.Slug,
		Kind:        item.Kind,
		HTML:        api.render(item.Description),
		File:        item.File,
		VideoURL:    item.VideoURL,
		CoverImage:  item.CoverImage,
		PublishedAt: item.PublishedAt,
	}
	for _, track := range item.Tracks {
		view.Tracks = append(view.Tracks, publicTrack{
			ID:        track.ID,
			Title:     track.Title,
			Order:     track.Order,
			AudioFile: track.AudioFile,
		})
	}
	return view
}

func (api *API) handlePublicItemList(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	records, total, err := api.library.ListPublished(r.Context(), r.URL.Query().Get("kind"), limit, offset)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	items := make([]publicItem, 0, len(records))
	for _, record := range records {
		items = append(items, api.publicItem(record))
	}
	writeJSON(w, http.StatusOK, listResponse[publicItem]{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (api *API) handlePublicItemGet(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	record, err := api.library.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.publicItem(record))
}

func (api *API) handleItemList(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	query := r.URL.Query()
	records, total, err := api.library.List(r.Context(), library.ItemFilter{
		Query:  query.Get("q"),
		Kind:   query.Get("kind"),
		Status: query.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		api.fail(w, r, err)
		return
	}
	if records == nil {
		records = []*library.MediaItem{}
	}
	writeJSON(w, http.StatusOK, listResponse[*library.MediaItem]{Items: records, Total: total, Limit: limit, Offset: offset})
}

func (api *API) handleItemCreate(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	var payload itemPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.fail(w, r, err)
		return
	}
	req := library.CreateItemRequest{
		Title:       payload.Title,
		Slug:        payload.Slug,
		Kind:        payload.Kind,
		Status:      payload.Status,
		Description: payload.Description,
		VideoURL:    payload.VideoURL,
	}
	if payload.File != nil {
		req.File = *payload.File
	}
	if payload.CoverImage != nil {
		req.CoverImage = *payload.CoverImage
	}
	record, err := api.library.Create(r.Context(), req)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (api *API) handleItemGet(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	record, err := api.library.Get(r.Context(), id)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleItemUpdate ignores a slug in the payload; item slugs never change
// after creation.
func (api *API) handleItemUpdate(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	var payload itemPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.fail(w, r, err)
		return
	}
	record, err := api.library.Update(r.Context(), library.UpdateItemRequest{
		ID:          id,
		Title:       payload.Title,
		Kind:        payload.Kind,
		Status:      payload.Status,
		Description: payload.Description,
		VideoURL:    payload.VideoURL,
		File:        payload.File,
		CoverImage:  payload.CoverImage,
	})
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (api *API) handleItemDelete(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	if err := api.library.Delete(r.Context(), id); err != nil {
		api.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) handleTrackAdd(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	itemID, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	var payload trackPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.fail(w, r, err)
		return
	}
	track, err := api.library.AddTrack(r.Context(), itemID, library.AddTrackRequest{
		Title:     payload.Title,
		Order:     payload.Order,
		AudioFile: payload.AudioFile,
	})
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (api *API) handleTrackDelete(w http.ResponseWriter, r *http.Request) {
	if api.library == nil {
		unavailable(w)
		return
	}
	itemID, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	trackID, err := parseUUID(chi.URLParam(r, "trackID"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	if err := api.library.DeleteTrack(r.Context(), itemID, trackID); err != nil {
		api.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
