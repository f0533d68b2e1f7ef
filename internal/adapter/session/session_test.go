package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jgivc/rinupdate/internal/adapter/network"
	"github.com/jgivc/rinupdate/internal/common"
	"github.com/jgivc/rinupdate/internal/config"
	"github.com/stretchr/testify/require"
)

const loginPage = `<html><body>
<form action="./ucp.php?mode=login" method="post">
  <input type="text" name="username">
  <input type="password" name="password">
  <input type="checkbox" name="autologin" checked>
  <input type="checkbox" name="viewonline">
  <input type="hidden" name="redirect" value="index.php">
  <select name="lang"><option value="en">English</option><option value="de" selected>Deutsch</option></select>
  <input type="submit" name="login" value="Login">
</form>
</body></html>`

func newTestSession(t *testing.T) *HTTPSession {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	cl, err := network.NewClient(&config.NetworkConfig{DefaultIntervalMillis: 1}, log)
	require.NoError(t, err)

	return NewHTTPSession(cl, log)
}

func newForumServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /forum/ucp.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, loginPage)
	})
	mux.HandleFunc("POST /forum/ucp.php", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		f := r.PostForm
		if f.Get("password") != "secret" || f.Get("login") != "Login" || f.Get("autologin") != "on" ||
			f.Has("viewonline") || f.Get("redirect") != "index.php" || f.Get("lang") != "de" {
			http.Error(w, "bad credentials: "+f.Encode(), http.StatusForbidden)

			return
		}

		http.SetCookie(w, &http.Cookie{Name: "sid", Value: f.Get("username"), Path: "/"})
		http.Redirect(w, r, "/forum/index.php", http.StatusFound)
	})
	mux.HandleFunc("GET /forum/index.php", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		if err != nil {
			http.Error(w, "no session", http.StatusForbidden)

			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>"+
			`<h2>Welcome <span class="user">`+c.Value+`</span></h2>`+
			`<a class="topic" href="viewtopic.php?t=7">First topic</a>`+
			`<form action="search.php" method="get"><input type="text" name="keywords" value="old"><button>Search</button></form>`+
			"</body></html>")
	})
	mux.HandleFunc("GET /forum/viewtopic.php", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><div class="post">topic `+r.URL.Query().Get("t")+`</div></body></html>`)
	})
	mux.HandleFunc("GET /forum/search.php", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><p id="q">`+r.URL.Query().Get("keywords")+`</p></body></html>`)
	})

	return httptest.NewServer(mux)
}

func TestHTTPSessionLoginFlow(t *testing.T) {
	srv := newForumServer(t)
	defer srv.Close()

	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL+"/forum/ucp.php?mode=login"))

	user, err := s.FindElement(`input[name="username"]`)
	require.NoError(t, err)
	pass, err := s.FindElement(`input[name="password"]`)
	require.NoError(t, err)
	login, err := s.FindElement(`input[name="login"]`)
	require.NoError(t, err)

	require.NoError(t, s.SendKeys(user, "ali"))
	require.NoError(t, s.SendKeys(user, "ce"))
	require.NoError(t, s.SendKeys(pass, "secret"))
	require.NoError(t, s.Click(ctx, login))

	require.Equal(t, srv.URL+"/forum/index.php", s.CurrentURL())
	name, err := s.FindElement(".user")
	require.NoError(t, err)
	require.Equal(t, "alice", name.Text())

	topic, err := s.FindElement("a.topic")
	require.NoError(t, err)
	href, ok := topic.Attr("href")
	require.True(t, ok)
	require.Equal(t, "viewtopic.php?t=7", href)

	require.NoError(t, s.Click(ctx, topic))
	post, err := s.FindElement("div.post")
	require.NoError(t, err)
	require.Equal(t, "topic 7", post.Text())
}

func TestHTTPSessionGetForm(t *testing.T) {
	srv := newForumServer(t)
	defer srv.Close()

	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL+"/forum/ucp.php"))
	require.NoError(t, s.Navigate(ctx, "ucp.php"))

	// A failed login keeps the current page.
	login, err := s.FindElement(`input[name="login"]`)
	require.NoError(t, err)
	require.Error(t, s.Click(ctx, login))
	require.Contains(t, s.CurrentURL(), "/forum/ucp.php")

	user, _ := s.FindElement(`input[name="username"]`)
	pass, _ := s.FindElement(`input[name="password"]`)
	login, _ = s.FindElement(`input[name="login"]`)
	require.NoError(t, s.SendKeys(user, "bob"))
	require.NoError(t, s.SendKeys(pass, "secret"))
	require.NoError(t, s.Click(ctx, login))

	kw, err := s.FindElement(`input[name="keywords"]`)
	require.NoError(t, err)
	require.NoError(t, s.SendKeys(kw, "er"))

	button, err := s.FindElement("form button")
	require.NoError(t, err)
	require.NoError(t, s.Click(ctx, button))

	q, err := s.FindElement("#q")
	require.NoError(t, err)
	require.Equal(t, "older", q.Text())
}

func TestHTTPSessionErrors(t *testing.T) {
	s := newTestSession(t)

	_, err := s.FindElement("a")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.Error(t, s.Navigate(context.Background(), "relative.php"))

	srv := newForumServer(t)
	defer srv.Close()

	require.NoError(t, s.Navigate(context.Background(), srv.URL+"/forum/viewtopic.php?t=1"))

	_, err = s.FindElement("#missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.FindElement("a")
	require.ErrorIs(t, err, common.ErrNotFound)

	post, err := s.FindElement("div.post")
	require.NoError(t, err)
	require.Error(t, s.Click(context.Background(), post))
	require.Error(t, s.SendKeys(post, "x"))
}

func TestElementFindAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		// 0xE9 is e-acute in windows-1252.
		w.Write([]byte("<html><body><div id=\"c\"><a href=\"/1\">caf\xe9</a><a href=\"/2\">two</a></div><a href=\"/3\">out</a></body></html>"))
	}))
	defer srv.Close()

	s := newTestSession(t)
	require.NoError(t, s.Navigate(context.Background(), srv.URL))

	c, err := s.FindElement("#c")
	require.NoError(t, err)

	links := c.FindAll("a")
	require.Len(t, links, 2)
	require.Equal(t, "café", links[0].Text())

	href, _ := links[1].Attr("href")
	require.Equal(t, "/2", href)
}
