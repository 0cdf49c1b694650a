package ctfd_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/retry"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/scraper/ctfd"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/challenges", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "data": [
			{"id": 1, "type": "standard", "name": "Baby RSA", "value": 100, "solves": 42, "category": "Crypto", "tags": [{"value": "easy"}]},
			{"id": 2, "type": "hidden", "name": "secret", "value": 0, "category": "Misc"},
			{"id": 3, "type": "standard", "name": "Login Bypass", "value": 300, "solves": null, "category": "", "tags": []}
		]}`)
	})
	mux.HandleFunc("/api/v1/challenges/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "data": {
			"id": 1, "name": "Baby RSA", "value": 100, "solves": 43,
			"description": "e = 3, good luck",
			"connection_info": "nc rsa.example.com 1337",
			"attribution": "alice",
			"category": "Crypto",
			"tags": ["easy", "rsa"],
			"files": ["/files/abc/chall.py?token=xyz", "/files/def/out.txt?token=xyz"]
		}}`)
	})
	mux.HandleFunc("/api/v1/challenges/3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": false, "message": "You don't have the permission to access the requested resource."}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient() *client.Client {
	return client.New(client.Options{Retry: retry.Policy{Attempts: 2, BaseDelay: time.Millisecond}})
}

func TestListChallenges(t *testing.T) {
	srv := newServer(t)
	a := ctfd.New(srv.URL, newClient())
	assert.Equal(t, scraper.CTFd, a.Platform())

	stubs, err := a.ListChallenges(context.Background())
	require.NoError(t, err)
	want := []scraper.Stub{
		{ID: "1", Name: "Baby RSA", Category: "Crypto", Points: scraper.Known(100), Solves: scraper.Known(42), Tags: []string{"easy"}},
		{ID: "3", Name: "Login Bypass", Category: "", Points: scraper.Known(300), Solves: scraper.Missing, Tags: []string{}},
	}
	if diff := cmp.Diff(want, stubs); diff != "" {
		t.Errorf("ListChallenges() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchDetail(t *testing.T) {
	srv := newServer(t)
	a := ctfd.New(srv.URL, newClient())

	d, err := a.FetchDetail(context.Background(), scraper.Stub{ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "e = 3, good luck", d.Description)
	assert.Equal(t, "nc rsa.example.com 1337", d.Connection)
	assert.Equal(t, "alice", d.Author)
	assert.Equal(t, scraper.Known(43), d.Solves)
	assert.Equal(t, []string{
		srv.URL + "/files/abc/chall.py?token=xyz",
		srv.URL + "/files/def/out.txt?token=xyz",
	}, d.Attachments)
}

func TestFetchDetailPermission(t *testing.T) {
	srv := newServer(t)
	a := ctfd.New(srv.URL, newClient())

	_, err := a.FetchDetail(context.Background(), scraper.Stub{ID: "3"})
	require.Error(t, err)
	assert.True(t, client.IsAuth(err))
}

func TestListNotCTFd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	}))
	defer srv.Close()

	_, err := ctfd.New(srv.URL, newClient()).ListChallenges(context.Background())
	assert.True(t, client.IsMalformed(err))
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "anon"})
			fmt.Fprint(w, `<form><input id="nonce" name="nonce" type="hidden" value="n0nce"></form>`)
			return
		}
		_ = r.ParseForm()
		pre, err := r.Cookie("session")
		if err != nil || pre.Value != "anon" || r.PostForm.Get("nonce") != "n0nce" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("name") != "player" || r.PostForm.Get("password") != "hunter2" {
			fmt.Fprint(w, "Your username or password is incorrect")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "authed"})
		http.Redirect(w, r, "/challenges", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cookies, err := ctfd.Login(context.Background(), srv.URL, &ctfd.Creds{Username: "player", Password: "hunter2"}, client.DefaultUserAgent, false)
	require.NoError(t, err)
	assert.Equal(t, "authed", cookies["session"])

	_, err = ctfd.Login(context.Background(), srv.URL, &ctfd.Creds{Username: "player", Password: "wrong"}, client.DefaultUserAgent, false)
	assert.EqualError(t, err, "invalid credential")
}
