package posts_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/permissions"
	"github.com/goliatone/go-press/internal/posts"
	"github.com/goliatone/go-press/internal/slugs"
	"github.com/goliatone/go-press/pkg/interfaces"
)

type stepClock struct {
	mu   sync.Mutex
	next time.Time
}

func newStepClock() *stepClock {
	return &stepClock{next: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Minute)
	return now
}

func newService(t *testing.T) (posts.Service, *posts.MemoryPostRepository, *stepClock) {
	t.Helper()
	repo := posts.NewMemoryPostRepository()
	clock := newStepClock()
	return posts.NewService(repo, posts.WithClock(clock.Now)), repo, clock
}

func staffCtx() context.Context {
	return permissions.WithActor(context.Background(), &interfaces.Actor{ID: uuid.New(), Username: "editor", IsStaff: true})
}

func adminCtx() context.Context {
	return permissions.WithActor(context.Background(), &interfaces.Actor{ID: uuid.New(), Username: "root", IsSuperadmin: true})
}

func TestCreateDerivesSlugFromTitle(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := staffCtx()

	post, err := svc.Create(ctx, posts.CreatePostRequest{Title: "Hello World", Body: "# Hi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.Slug != "hello-world" {
		t.Fatalf("expected hello-world, got %q", post.Slug)
	}
	if post.Status != posts.StatusDraft || post.PublishedAt != nil {
		t.Fatalf("expected unpublished draft, got %+v", post)
	}
	if post.AuthorID != permissions.ActorID(ctx) {
		t.Fatalf("expected author from actor")
	}
}

func TestCreatePublishedStampsPublishedAt(t *testing.T) {
	svc, _, _ := newService(t)

	post, err := svc.Create(staffCtx(), posts.CreatePostRequest{Title: "Launch", Status: "Published"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.PublishedAt == nil || !post.PublishedAt.Equal(post.CreatedAt) {
		t.Fatalf("expected published_at to equal creation time, got %v", post.PublishedAt)
	}
}

func TestCreateNormalizesExplicitSlug(t *testing.T) {
	svc, _, _ := newService(t)

	post, err := svc.Create(staffCtx(), posts.CreatePostRequest{Title: "Anything", Slug: "  My Custom Slug! "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.Slug != "my-custom-slug" {
		t.Fatalf("expected normalized explicit slug, got %q", post.Slug)
	}
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := staffCtx()

	if _, err := svc.Create(ctx, posts.CreatePostRequest{Title: "Hello"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(ctx, posts.CreatePostRequest{Title: "Hello!"})
	if !errors.Is(err, slugs.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, total, err := svc.List(ctx, posts.PostFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected nothing written on collision, got %d posts", total)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Create(staffCtx(), posts.CreatePostRequest{Title: "   ", Body: "body"})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Create(staffCtx(), posts.CreatePostRequest{Title: "Video", VideoURL: "javascript:alert(1)"})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected invalid video url, got %v", err)
	}

	_, err = svc.Create(staffCtx(), posts.CreatePostRequest{Title: "State", Status: "archived"})
	if !goerrors.IsValidation(err) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestCreateUsesRawFallbackWhenNothingNormalizes(t *testing.T) {
	svc, _, _ := newService(t)

	post, err := svc.Create(staffCtx(), posts.CreatePostRequest{Title: "?? !!"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.Slug != "??-!!" {
		t.Fatalf("expected raw fallback slug, got %q", post.Slug)
	}
}

func TestConcurrentCreatesYieldOneWinner(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := staffCtx()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, posts.CreatePostRequest{Title: "Same Title"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, slugs.ErrSlugTaken):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != writers-1 {
		t.Fatalf("expected one winner, got %d succeeded and %d rejected", succeeded, rejected)
	}
}

func TestUpdateKeepsOwnSlugAndTracksPublication(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := staffCtx()

	post, err := svc.Create(ctx, posts.CreatePostRequest{Title: "Hello", CoverImage: "covers/a.png"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	published, err := svc.Update(ctx, posts.UpdatePostRequest{ID: post.ID, Title: "Hello", Status: posts.StatusPublished})
	if err != nil {
		t.Fatalf("Update publish: %v", err)
	}
	if published.Slug != "hello" {
		t.Fatalf("expected slug to stay hello, got %q", published.Slug)
	}
	if published.PublishedAt == nil {
		t.Fatalf("expected published_at to be set")
	}
	if published.CoverImage != "covers/a.png" {
		t.Fatalf("expected cover image to be kept, got %q", published.CoverImage)
	}
	firstPublished := *published.PublishedAt

	again, err := svc.Update(ctx, posts.UpdatePostRequest{ID: post.ID, Title: "Hello again", Slug: "hello", Status: posts.StatusPublished})
	if err != nil {
		t.Fatalf("Update republish: %v", err)
	}
	if !again.PublishedAt.Equal(firstPublished) {
		t.Fatalf("expected published_at to be preserved")
	}

	cover := ""
	draft, err := svc.Update(ctx, posts.UpdatePostRequest{ID: post.ID, Title: "Hello again", Status: posts.StatusDraft, CoverImage: &cover})
	if err != nil {
		t.Fatalf("Update draft: %v", err)
	}
	if draft.PublishedAt != nil {
		t.Fatalf("expected draft to clear published_at")
	}
	if draft.Slug != "hello-again" {
		t.Fatalf("expected slug recomputed from title, got %q", draft.Slug)
	}
	if draft.CoverImage != "" {
		t.Fatalf("expected cover image to be cleared")
	}
}

func TestUpdateRejectsSlugOfAnotherPost(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := staffCtx()

	if _, err := svc.Create(ctx, posts.CreatePostRequest{Title: "First"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, posts.CreatePostRequest{Title: "Second"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(ctx, posts.UpdatePostRequest{ID: second.ID, Title: "Second", Slug: "first"})
	if !errors.Is(err, slugs.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	stored, err := svc.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Slug != "second" {
		t.Fatalf("expected slug unchanged after rejection, got %q", stored.Slug)
	}
}

func TestDeleteRequiresSuperadmin(t *testing.T) {
	svc, _, _ := newService(t)

	post, err := svc.Create(staffCtx(), posts.CreatePostRequest{Title: "Doomed"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(staffCtx(), post.ID); !errors.Is(err, permissions.ErrPermissionDenied) {
		t.Fatalf("expected staff delete to be denied, got %v", err)
	}
	if err := svc.Delete(adminCtx(), post.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var notFound *posts.NotFoundError
	if _, err := svc.Get(adminCtx(), post.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := svc.Delete(adminCtx(), post.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError on second delete, got %v", err)
	}
}

func TestListFiltersAndPublicViews(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := staffCtx()

	mustCreate := func(title, status string) *posts.Post {
		t.Helper()
		post, err := svc.Create(ctx, posts.CreatePostRequest{Title: title, Status: status})
		if err != nil {
			t.Fatalf("Create %q: %v", title, err)
		}
		return post
	}
	older := mustCreate("Go Tips", posts.StatusPublished)
	mustCreate("Draft Go Notes", posts.StatusDraft)
	newer := mustCreate("Cooking", posts.StatusPublished)

	found, total, err := svc.List(ctx, posts.PostFilter{Query: "go"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || found[0].Title != "Draft Go Notes" {
		t.Fatalf("expected newest matching post first, got %d %+v", total, found)
	}

	drafts, _, err := svc.List(ctx, posts.PostFilter{Status: "draft"})
	if err != nil || len(drafts) != 1 {
		t.Fatalf("expected one draft, got %d (%v)", len(drafts), err)
	}
	if _, _, err := svc.List(ctx, posts.PostFilter{Status: "bogus"}); !goerrors.IsValidation(err) {
		t.Fatalf("expected invalid status filter, got %v", err)
	}

	public, total, err := svc.ListPublished(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if total != 2 || public[0].ID != newer.ID || public[1].ID != older.ID {
		t.Fatalf("expected published posts newest first, got %+v", public)
	}

	if _, err := svc.GetPublishedBySlug(context.Background(), "draft-go-notes"); err == nil {
		t.Fatalf("expected drafts to be hidden publicly")
	}
	got, err := svc.GetPublishedBySlug(context.Background(), "cooking")
	if err != nil || got.ID != newer.ID {
		t.Fatalf("GetPublishedBySlug: %v", err)
	}
}

func TestImportPostKeepsIDAndPublicationDate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := permissions.WithActor(context.Background(), permissions.System())
	id := uuid.New()
	date := time.Date(2023, 5, 4, 12, 0, 0, 0, time.UTC)

	exists, err := svc.PostExists(ctx, id)
	if err != nil || exists {
		t.Fatalf("expected missing post, got %v %v", exists, err)
	}

	err = svc.ImportPost(ctx, interfaces.ImportedPost{
		ID:          id,
		Title:       "Imported",
		Body:        "text",
		Status:      posts.StatusPublished,
		PublishedAt: &date,
	})
	if err != nil {
		t.Fatalf("ImportPost: %v", err)
	}

	post, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if post.PublishedAt == nil || !post.PublishedAt.Equal(date) {
		t.Fatalf("expected imported published_at, got %v", post.PublishedAt)
	}
	if exists, _ := svc.PostExists(ctx, id); !exists {
		t.Fatalf("expected post to exist after import")
	}
}
