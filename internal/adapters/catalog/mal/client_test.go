package mal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/domain"
)

func TestFetchListDecodesPage(t *testing.T) {
	var gotPath, gotQuery, gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotClientID = r.Header.Get("X-MAL-CLIENT-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"node":{"id":5114,"title":"FMA:B","mean":9.1,"genres":[{"id":1,"name":"Action"}]},"list_status":{"status":"completed","score":10,"num_episodes_watched":64,"updated_at":"2026-03-01T10:00:00+00:00"}}],"paging":{}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL + "/"))
	items, err := client.FetchList(context.Background(), app.ListQuery{
		User:   "some user",
		Sort:   "list_updated_at",
		Limit:  50,
		Fields: []string{"list_status", "mean"},
	}, "client-abc")
	if err != nil {
		t.Fatalf("FetchList() error = %v", err)
	}
	if gotPath != "/users/some user/animelist" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "fields=list_status%2Cmean&limit=50&sort=list_updated_at" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotClientID != "client-abc" {
		t.Fatalf("unexpected client id header %q", gotClientID)
	}
	if len(items) != 1 || items[0].Node.ID != 5114 || items[0].ListStatus.NumEpisodesWatched != 64 {
		t.Fatalf("unexpected items %#v", items)
	}
	if items[0].Node.Genres[0].Name != "Action" {
		t.Fatalf("unexpected genres %#v", items[0].Node.Genres)
	}
}

func TestFetchListEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	items, err := NewClient(WithBaseURL(srv.URL)).FetchList(context.Background(), app.ListQuery{User: "u"}, "id")
	if err != nil {
		t.Fatalf("FetchList() error = %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", items)
	}
}

func TestFetchListMapsStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, check: func(err error) bool { return errors.Is(err, domain.ErrAuth) }},
		{name: "not found", status: http.StatusNotFound, check: func(err error) bool { return errors.Is(err, domain.ErrNotFound) }},
		{name: "server error", status: http.StatusBadGateway, check: func(err error) bool {
			var transportErr *domain.TransportError
			return errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusBadGateway && errors.Is(err, domain.ErrTransport)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			_, err := NewClient(WithBaseURL(srv.URL)).FetchList(context.Background(), app.ListQuery{User: "u"}, "id")
			if err == nil || !tc.check(err) {
				t.Fatalf("FetchList() error = %v", err)
			}
		})
	}
}

func TestFetchListRequiresUser(t *testing.T) {
	_, err := NewClient().FetchList(context.Background(), app.ListQuery{}, "id")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("FetchList() error = %v, want ErrValidation", err)
	}
}

func TestFetchListKeepsRequestCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(WithBaseURL(srv.URL)).FetchList(ctx, app.ListQuery{User: "u"}, "id")
	if !errors.Is(err, domain.ErrTransport) || !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchList() error = %v, want ErrTransport wrapping context.Canceled", err)
	}
}

func TestFetchListKeepsDecodeCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchList(context.Background(), app.ListQuery{User: "u"}, "id")
	var syntaxErr *json.SyntaxError
	if !errors.Is(err, domain.ErrTransport) || !(errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &syntaxErr)) {
		t.Fatalf("FetchList() error = %v, want ErrTransport wrapping the decode cause", err)
	}
}
