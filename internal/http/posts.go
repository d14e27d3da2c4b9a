package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/posts"
)

type postPayload struct {
	Title      string  `json:"title"`
	Slug       string  `json:"slug,omitempty"`
	Body       string  `json:"body"`
	Status     string  `json:"status,omitempty"`
	VideoURL   string  `json:"video_url,omitempty"`
	CoverImage *string `json:"cover_image,omitempty"`
}

// publicPost is the site view of a post: the raw Markdown body never leaves
// the panel, only its sanitized rendering.
type publicPost struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	HTML        string     `json:"html"`
	CoverImage  string     `json:"cover_image,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func (api *API) publicPost(post *posts.Post) publicPost {
	return publicPost{
		ID:          post.ID,
		Title:       post.Title,
		Slug:        post.Slug,
		HTML:        api.render(post.Body),
		CoverImage:  post.CoverImage,
		VideoURL:    post.VideoURL,
		PublishedAt: post.PublishedAt,
	}
}

func (api *API) handlePublicPostList(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		unavailable(w)
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	records, total, err := api.posts.ListPublished(r.Context(), limit, offset)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	items := make([]publicPost, 0, len(records))
	for _, record := range records {
		items = append(items, api.publicPost(record))
	}
	writeJSON(w, http.StatusOK, listResponse[publicPost]{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (api *API) handlePublicPostGet(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		unavailable(w)
		return
	}
	record, err := api.posts.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.publicPost(record))
}

func (api *API) handlePostList(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		unavailable(w)
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	records, total, err := api.posts.List(r.Context(), posts.PostFilter{
		Query:  r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		api.fail(w, r, err)
		return
	}
	if records == nil {
		records = []*posts.Post{}
	}
	writeJSON(w, http.StatusOK, listResponse[*posts.Post]{Items: records, Total: total, Limit: limit, Offset: offset})
}

func (api *API) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		unavailable(w)
		return
	}
	var payload postPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.fail(w, r, err)
		return
	}
	req := posts.CreatePostRequest{
		Title:    payload.Title,
		Slug:     payload.Slug,
		Body:     payload.Body,
		Status:   payload.Status,
		VideoURL: payload.VideoURL,
	}
	if payload.CoverImage != nil {
		req.CoverImage = *payload.CoverImage
	}
	record, err := api.posts.Create(r.Context(), req)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (api *API) handlePostGet(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		unavailable(w)
		return
	}
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	record, err := api.posts.Get(r.Context(), id)
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (api *API) handlePostUpdate(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		unavailable(w)
		return
	}
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	var payload postPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.fail(w, r, err)
		return
	}
	record, err := api.posts.Update(r.Context(), posts.UpdatePostRequest{
		ID:         id,
		Title:      payload.Title,
		Slug:       payload.Slug,
		Body:       payload.Body,
		Status:     payload.Status,
		VideoURL:   payload.VideoURL,
		CoverImage: payload.CoverImage,
	})
	if err != nil {
		api.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (api *API) handlePostDelete(w http.ResponseWriter, r *http.Request) {
	if api.posts == nil {
		unavailable(w)
		return
	}
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		api.fail(w, r, err)
		return
	}
	if err := api.posts.Delete(r.Context(), id); err != nil {
		api.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
