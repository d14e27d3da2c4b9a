package library_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/library"
	"github.com/goliatone/go-press/internal/permissions"
	"github.com/goliatone/go-press/internal/slugs"
	"github.com/goliatone/go-press/pkg/interfaces"
)

type stepClock struct {
	mu   sync.Mutex
	next time.Time
}

func newStepClock() *stepClock {
	return &stepClock{next: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Minute)
	return now
}

func newService(t *testing.T) (library.Service, *library.MemoryStore) {
	t.Helper()
	store := library.NewMemoryStore()
	return library.NewService(store.Items(), store.Tracks(), library.WithClock(newStepClock().Now)), store
}

func staffCtx() context.Context {
	return permissions.WithActor(context.Background(), &interfaces.Actor{ID: uuid.New(), Username: "editor", IsStaff: true})
}

func audio(title string) library.CreateItemRequest {
	return library.CreateItemRequest{Title: title, File: "library/2024/03/a.mp3"}
}

func TestCreateAutoSuffixesCollidingSlugs(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	want := []string{"song", "song-2", "song-3"}
	for i, title := range []string{"Song", "song", "SONG!"} {
		item, err := svc.Create(ctx, audio(title))
		if err != nil {
			t.Fatalf("Create %q: %v", title, err)
		}
		if item.Slug != want[i] {
			t.Fatalf("expected %q, got %q", want[i], item.Slug)
		}
	}
}

func TestCreateFallsBackToMedia(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	first, err := svc.Create(ctx, audio("???"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, audio("!!!"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Slug != "media" || second.Slug != "media-2" {
		t.Fatalf("expected media fallbacks, got %q and %q", first.Slug, second.Slug)
	}
}

func TestCreateTransliteratesUnicodeTitles(t *testing.T) {
	svc, _ := newService(t)

	item, err := svc.Create(staffCtx(), audio("Café Müller"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Slug != slugs.Normalize("Café Müller") || item.Slug == "" {
		t.Fatalf("unexpected slug %q", item.Slug)
	}
	for _, r := range item.Slug {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			t.Fatalf("slug %q contains %q", item.Slug, r)
		}
	}
}

// racyItems reports every slug as free so only the storage uniqueness check
// can catch collisions.
type racyItems struct {
	*library.MemoryMediaItemRepository
}

func (racyItems) SlugExists(context.Context, string, uuid.UUID) (bool, error) {
	return false, nil
}

func TestCreateRetriesOnStorageConflict(t *testing.T) {
	store := library.NewMemoryStore()
	svc := library.NewService(racyItems{store.Items()}, store.Tracks())
	ctx := staffCtx()

	for i, want := range []string{"song", "song-2", "song-3"} {
		item, err := svc.Create(ctx, audio("Song"))
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if item.Slug != want {
			t.Fatalf("expected %q, got %q", want, item.Slug)
		}
	}
}

func TestCreateStopsAfterWriteRetries(t *testing.T) {
	store := library.NewMemoryStore()
	assigner := slugs.NewAssigner(slugs.Config{
		Entity:          "media_item",
		Policy:          slugs.PolicyAutoSuffix,
		Fallback:        "media",
		MaxWriteRetries: 2,
	})
	svc := library.NewService(racyItems{store.Items()}, store.Tracks(), library.WithSlugAssigner(assigner))
	ctx := staffCtx()

	for range 2 {
		if _, err := svc.Create(ctx, audio("Song")); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	_, err := svc.Create(ctx, audio("Song"))
	if !errors.Is(err, slugs.ErrSlugRetriesExhausted) {
		t.Fatalf("expected ErrSlugRetriesExhausted, got %v", err)
	}
}

func TestConcurrentCreatesGetDistinctSlugs(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	const workers = 5
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
		errs []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := svc.Create(ctx, audio("Same Title"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			seen[item.Slug] = true
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(seen) != workers {
		t.Fatalf("expected %d distinct slugs, got %v", workers, seen)
	}
}

func TestCreateValidatesMediaReferences(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	cases := []struct {
		name  string
		req   library.CreateItemRequest
		field string
	}{
		{"audio without file", library.CreateItemRequest{Title: "A"}, "file"},
		{"video without file or url", library.CreateItemRequest{Title: "V", Kind: library.KindVideo}, "video_url"},
		{"bad video url", library.CreateItemRequest{Title: "V", Kind: library.KindVideo, VideoURL: "javascript:alert(1)"}, "video_url"},
		{"unknown kind", library.CreateItemRequest{Title: "X", Kind: "podcast", File: "f"}, "kind"},
		{"missing title", library.CreateItemRequest{File: "f"}, "title"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			if !goerrors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			fields, _ := goerrors.GetValidationErrors(err)
			found := false
			for _, f := range fields {
				if f.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected issue on %q, got %+v", tc.field, fields)
			}
		})
	}

	video, err := svc.Create(ctx, library.CreateItemRequest{Title: "Clip", Kind: library.KindVideo, VideoURL: "https://video.example.com/clip"})
	if err != nil {
		t.Fatalf("video with url: %v", err)
	}
	if video.Kind != library.KindVideo {
		t.Fatalf("expected video kind, got %q", video.Kind)
	}
}

func TestUpdateNeverChangesSlug(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	item, err := svc.Create(ctx, audio("Original Title"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, library.UpdateItemRequest{ID: item.ID, Title: "Completely Different", Status: library.StatusPublished})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "original-title" {
		t.Fatalf("expected slug to stay original-title, got %q", updated.Slug)
	}
	if updated.File != item.File {
		t.Fatalf("expected file to be kept, got %q", updated.File)
	}
	if updated.PublishedAt == nil {
		t.Fatalf("expected published_at on first publish")
	}
	firstPublished := *updated.PublishedAt

	reverted, err := svc.Update(ctx, library.UpdateItemRequest{ID: item.ID, Title: "Completely Different", Status: library.StatusDraft})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if reverted.PublishedAt == nil || !reverted.PublishedAt.Equal(firstPublished) {
		t.Fatalf("expected published_at to be kept, got %v", reverted.PublishedAt)
	}

	republished, err := svc.Update(ctx, library.UpdateItemRequest{ID: item.ID, Title: "Again", Status: library.StatusPublished})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !republished.PublishedAt.Equal(firstPublished) {
		t.Fatalf("expected original publication time, got %v", republished.PublishedAt)
	}
}

func TestUpdateMissingItem(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Update(staffCtx(), library.UpdateItemRequest{ID: uuid.New(), Title: "Ghost"})
	var notFound *library.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestTracksOrderAndDefaults(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	item, err := svc.Create(ctx, audio("Album"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := svc.AddTrack(ctx, item.ID, library.AddTrackRequest{AudioFile: "one.mp3"})
	if err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if first.Order != 1 || first.Title != library.DefaultTrackTitle {
		t.Fatalf("expected order 1 titled Track, got %+v", first)
	}
	if _, err := svc.AddTrack(ctx, item.ID, library.AddTrackRequest{Title: "Ten", Order: 10, AudioFile: "ten.mp3"}); err != nil {
		t.Fatalf("AddTrack explicit: %v", err)
	}
	next, err := svc.AddTrack(ctx, item.ID, library.AddTrackRequest{Title: "After", AudioFile: "eleven.mp3"})
	if err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if next.Order != 11 {
		t.Fatalf("expected order 11, got %d", next.Order)
	}

	_, err = svc.AddTrack(ctx, item.ID, library.AddTrackRequest{Order: 10, AudioFile: "dup.mp3"})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error for duplicate order, got %v", err)
	}

	_, err = svc.AddTrack(ctx, item.ID, library.AddTrackRequest{Order: 2})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error for missing audio, got %v", err)
	}
	_, err = svc.AddTrack(ctx, item.ID, library.AddTrackRequest{Order: -1, AudioFile: "neg.mp3"})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error for negative order, got %v", err)
	}

	got, err := svc.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	orders := make([]int, 0, len(got.Tracks))
	for _, track := range got.Tracks {
		orders = append(orders, track.Order)
	}
	if len(orders) != 3 || orders[0] != 1 || orders[1] != 10 || orders[2] != 11 {
		t.Fatalf("unexpected track orders %v", orders)
	}
}

func TestAddTrackToMissingItem(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.AddTrack(staffCtx(), uuid.New(), library.AddTrackRequest{AudioFile: "a.mp3"})
	var notFound *library.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteTrackChecksOwnership(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	a, _ := svc.Create(ctx, audio("A"))
	b, _ := svc.Create(ctx, audio("B"))
	track, err := svc.AddTrack(ctx, a.ID, library.AddTrackRequest{AudioFile: "a.mp3"})
	if err != nil {
		t.Fatalf("AddTrack: %v", err)
	}

	var notFound *library.NotFoundError
	if err := svc.DeleteTrack(ctx, b.ID, track.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for foreign item, got %v", err)
	}
	if err := svc.DeleteTrack(ctx, a.ID, track.ID); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}
	tracks, err := svc.ListTracks(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected no tracks, got %d", len(tracks))
	}
}

func TestDeleteCascadesTracks(t *testing.T) {
	svc, store := newService(t)
	ctx := staffCtx()

	item, _ := svc.Create(ctx, audio("Gone"))
	track, err := svc.AddTrack(ctx, item.ID, library.AddTrackRequest{AudioFile: "gone.mp3"})
	if err != nil {
		t.Fatalf("AddTrack: %v", err)
	}

	if err := svc.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var notFound *library.NotFoundError
	if _, err := store.Tracks().GetByID(ctx, track.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected track to be deleted, got %v", err)
	}
	if err := svc.Delete(ctx, item.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError on second delete, got %v", err)
	}
}

func TestPermissionsRequireStaff(t *testing.T) {
	svc, _ := newService(t)
	visitor := permissions.WithActor(context.Background(), &interfaces.Actor{ID: uuid.New(), Username: "guest"})

	_, err := svc.Create(visitor, audio("Nope"))
	if !errors.Is(err, permissions.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestPublicViews(t *testing.T) {
	svc, _ := newService(t)
	ctx := staffCtx()

	draft, _ := svc.Create(ctx, audio("Hidden"))
	song, _ := svc.Create(ctx, library.CreateItemRequest{Title: "Song", File: "s.mp3", Status: library.StatusPublished})
	clip, _ := svc.Create(ctx, library.CreateItemRequest{Title: "Clip", Kind: library.KindVideo, VideoURL: "https://v.example.com/1", Status: library.StatusPublished})
	if _, err := svc.AddTrack(ctx, song.ID, library.AddTrackRequest{AudioFile: "s1.mp3"}); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}

	public := context.Background()
	if _, err := svc.GetPublishedBySlug(public, draft.Slug); err == nil {
		t.Fatalf("expected draft to be hidden")
	}
	got, err := svc.GetPublishedBySlug(public, "song")
	if err != nil {
		t.Fatalf("GetPublishedBySlug: %v", err)
	}
	if len(got.Tracks) != 1 {
		t.Fatalf("expected tracks to be loaded, got %d", len(got.Tracks))
	}

	all, total, err := svc.ListPublished(public, "", 10, 0)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if total != 2 || all[0].ID != clip.ID || all[1].ID != song.ID {
		t.Fatalf("expected clip then song, got %d items", total)
	}

	videos, total, err := svc.ListPublished(public, "video", 10, 0)
	if err != nil {
		t.Fatalf("ListPublished video: %v", err)
	}
	if total != 1 || videos[0].ID != clip.ID {
		t.Fatalf("expected only the clip, got %d", total)
	}

	if _, _, err := svc.List(ctx, library.ItemFilter{Kind: "podcast"}); !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error for filter, got %v", err)
	}
	drafts, total, err := svc.List(ctx, library.ItemFilter{Status: library.StatusDraft})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || drafts[0].ID != draft.ID {
		t.Fatalf("expected one draft, got %d", total)
	}
}
