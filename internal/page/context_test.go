package page

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/session"
)

type memStore struct{ saved int }

func (m *memStore) Load(*http.Request) (*session.Session, error) { return nil, session.ErrNoSession }
func (m *memStore) Save(http.ResponseWriter, *http.Request, *session.Session) error {
	m.saved++
	return nil
}
func (m *memStore) Clear(http.ResponseWriter, *http.Request) error { return nil }

func TestNewConsumesFlashesAndCommits(t *testing.T) {
	store := &memStore{}
	s := session.New()
	s.SetFlash(session.FlashLogin, "1")
	s.SetFlash(session.FlashNotice, "Review submitted.")

	req := httptest.NewRequest(http.MethodGet, "/business/121/doctors/cat5", nil)
	req = req.WithContext(auth.WithSession(req.Context(), s, store))

	pc := New(httptest.NewRecorder(), req)

	if !pc.ShowLogin || pc.Notice != "Review submitted." {
		t.Fatalf("flashes not surfaced: login=%v notice=%q", pc.ShowLogin, pc.Notice)
	}
	if len(s.Flash) != 0 {
		t.Fatalf("flashes not consumed: %v", s.Flash)
	}
	if store.saved != 1 {
		t.Fatalf("session saved %d times, want 1", store.saved)
	}
	if pc.Status != http.StatusOK {
		t.Fatalf("Status = %d", pc.Status)
	}
}

func TestURLInfo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.test:8080/category/doctors/cat5?x=1", nil)
	got := newURLInfo(req)
	if got.Host != "example.test" || got.Route != "category/doctors/cat5" {
		t.Fatalf("URLInfo = %+v", got)
	}
	if diff := cmp.Diff([]string{"category", "doctors", "cat5"}, got.Segments); diff != "" {
		t.Fatalf("Segments (-want +got):\n%s", diff)
	}
	if got.Query.Get("x") != "1" {
		t.Fatalf("Query = %v", got.Query)
	}
}

func TestAnonymousContext(t *testing.T) {
	pc := New(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if pc.LoggedIn() || pc.User() != nil || pc.IsBot() {
		t.Fatal("bare request should be an anonymous human")
	}
	if len(pc.URL.Segments) != 0 {
		t.Fatalf("root segments = %v", pc.URL.Segments)
	}
}
