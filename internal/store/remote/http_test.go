package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/store"
)

func signToken(t *testing.T, sub, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

// fakeRowAPI is an in-memory stand-in for the row API.
type fakeRowAPI struct {
	mu     sync.Mutex
	active map[string]json.RawMessage
	games  map[string][]json.RawMessage
	reqs   []string

	failStatus int
	failBody   string
	failTimes  int32
	calls      atomic.Int32
}

func (f *fakeRowAPI) handle(ctx *fasthttp.RequestCtx) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, string(ctx.Method())+" "+string(ctx.Path()))

	if f.failTimes != 0 {
		if f.failTimes > 0 {
			f.failTimes--
		}
		ctx.SetStatusCode(f.failStatus)
		ctx.SetBodyString(f.failBody)
		return
	}
	if string(ctx.Request.Header.Peek("Authorization")) == "" || string(ctx.Request.Header.Peek("apikey")) != "anon" {
		ctx.SetStatusCode(401)
		ctx.SetBodyString(`{"code":"PGRST301","message":"JWT missing"}`)
		return
	}

	user := string(ctx.QueryArgs().Peek("user_id"))
	switch string(ctx.Path()) {
	case pathActiveGames:
		switch string(ctx.Method()) {
		case fasthttp.MethodGet:
			if raw, ok := f.active[user]; ok {
				ctx.SetBodyString("[" + string(raw) + "]")
			} else {
				ctx.SetBodyString("[]")
			}
		case fasthttp.MethodPost:
			if string(ctx.QueryArgs().Peek("on_conflict")) != "user_id" {
				ctx.SetStatusCode(409)
				return
			}
			var rows []map[string]json.RawMessage
			_ = json.Unmarshal(ctx.PostBody(), &rows)
			var uid string
			_ = json.Unmarshal(rows[0]["user_id"], &uid)
			raw, _ := json.Marshal(rows[0])
			f.active[uid] = raw
			ctx.SetStatusCode(201)
		case fasthttp.MethodDelete:
			delete(f.active, user)
			ctx.SetStatusCode(204)
		}
	case pathGames:
		switch string(ctx.Method()) {
		case fasthttp.MethodGet:
			out := "["
			list := f.games[user]
			for i := len(list) - 1; i >= 0; i-- {
				out += string(list[i])
				if i > 0 {
					out += ","
				}
			}
			ctx.SetBodyString(out + "]")
		case fasthttp.MethodPost:
			var rows []map[string]json.RawMessage
			_ = json.Unmarshal(ctx.PostBody(), &rows)
			var uid string
			_ = json.Unmarshal(rows[0]["user_id"], &uid)
			raw, _ := json.Marshal(rows[0])
			f.games[uid] = append(f.games[uid], raw)
			ctx.SetStatusCode(201)
		case fasthttp.MethodDelete:
			id := string(ctx.QueryArgs().Peek("id"))
			kept := f.games[user][:0]
			for _, raw := range f.games[user] {
				var row struct {
					ID string `json:"id"`
				}
				_ = json.Unmarshal(raw, &row)
				if "eq."+row.ID != id {
					kept = append(kept, raw)
				}
			}
			f.games[user] = kept
			ctx.SetStatusCode(204)
		}
	default:
		ctx.SetStatusCode(404)
	}
}

func newTestHTTPStore(t *testing.T, creds store.Credentials) (*HTTPStore, *fakeRowAPI) {
	t.Helper()
	api := &fakeRowAPI{active: map[string]json.RawMessage{}, games: map[string][]json.RawMessage{}}
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: api.handle}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
	s := NewHTTPStore("http://rows.test/", creds,
		WithHTTPClient(client),
		WithAPIKey("anon"),
		WithRetry(3),
		WithTimeout(2*time.Second),
	)
	return s, api
}

func TestHTTPStore_ActiveGameLifecycle(t *testing.T) {
	creds := store.NewTokenHolder(signToken(t, "user-1", "secret"))
	s, _ := newTestHTTPStore(t, creds)
	ctx := context.Background()

	if a, err := s.GetActiveGame(ctx); err != nil || a != nil {
		t.Fatalf("expected no active game, got %+v, %v", a, err)
	}
	in := &match.ActiveGame{ID: "a1", PlayerOne: "alice", PlayerTwo: "bob", P1Score: 3, Mode: match.ModeRace, Target: 5, BreakPlayer: "alice", P1Ball: match.BallRed}
	if err := s.SaveActiveGame(ctx, in); err != nil {
		t.Fatalf("SaveActiveGame: %v", err)
	}
	in.P1Score = 4
	if err := s.SaveActiveGame(ctx, in); err != nil {
		t.Fatalf("SaveActiveGame upsert: %v", err)
	}
	got, err := s.GetActiveGame(ctx)
	if err != nil || got == nil || got.P1Score != 4 || got.P1Ball != match.BallRed {
		t.Fatalf("reload: %+v, %v", got, err)
	}
	if err := s.SaveActiveGame(ctx, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := s.GetActiveGame(ctx); got != nil {
		t.Fatalf("expected cleared active game")
	}
}

func TestHTTPStore_History(t *testing.T) {
	creds := store.NewTokenHolder(signToken(t, "user-1", "secret"))
	s, _ := newTestHTTPStore(t, creds)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"g1", "g2"} {
		g := &match.Game{ID: id, PlayerOne: "alice", PlayerTwo: "bob", P1Score: 1, Target: 1, Mode: match.ModeRace, Winner: "alice",
			Date: now.Add(time.Duration(i) * time.Hour), StartTime: now, EndTime: now.Add(time.Duration(i) * time.Hour)}
		if err := s.AddGame(ctx, g); err != nil {
			t.Fatalf("AddGame %s: %v", id, err)
		}
	}
	games, err := s.GetPastGames(ctx)
	if err != nil || len(games) != 2 || games[0].ID != "g2" {
		t.Fatalf("GetPastGames: %v, %v", games, err)
	}
	if err := s.DeleteGame(ctx, "g2"); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	games, _ = s.GetPastGames(ctx)
	if len(games) != 1 || games[0].ID != "g1" {
		t.Fatalf("after delete: %v", games)
	}
}

func TestHTTPStore_NoCredential(t *testing.T) {
	s, api := newTestHTTPStore(t, store.NewTokenHolder(""))
	ctx := context.Background()
	if err := s.SaveActiveGame(ctx, &match.ActiveGame{ID: "a"}); !errors.Is(err, store.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if _, err := s.GetPastGames(ctx); !errors.Is(err, store.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if api.calls.Load() != 0 {
		t.Fatalf("no request should be sent without a credential")
	}
}

func TestHTTPStore_ErrorClassification(t *testing.T) {
	creds := store.NewTokenHolder(signToken(t, "user-1", "secret"))
	s, api := newTestHTTPStore(t, creds)
	api.failStatus = 403
	api.failBody = `{"code":"42501","message":"new row violates row-level security policy for table \"active_games\""}`
	api.failTimes = -1

	err := s.SaveActiveGame(context.Background(), &match.ActiveGame{ID: "a", Mode: match.ModeRace})
	var re *store.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Status != 403 || re.Code != "42501" || re.Class() != store.ClassPolicy {
		t.Fatalf("unexpected remote error %+v class=%v", re, re.Class())
	}
	if api.calls.Load() != 1 {
		t.Fatalf("writes must not be retried, calls=%d", api.calls.Load())
	}
}

func TestHTTPStore_RetriesReadsOn5xx(t *testing.T) {
	creds := store.NewTokenHolder(signToken(t, "user-1", "secret"))
	s, api := newTestHTTPStore(t, creds)
	api.failStatus = 503
	api.failBody = "unavailable"
	api.failTimes = 2

	games, err := s.GetPastGames(context.Background())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(games) != 0 || api.calls.Load() != 3 {
		t.Fatalf("games=%d calls=%d", len(games), api.calls.Load())
	}
}

func TestHTTPStore_BadToken(t *testing.T) {
	s, _ := newTestHTTPStore(t, store.NewTokenHolder("not-a-jwt"))
	_, err := s.GetActiveGame(context.Background())
	if store.Classify(err) != store.ClassAuth {
		t.Fatalf("malformed token should classify as auth, got %v", err)
	}
}

func TestHTTPStore_Transport(t *testing.T) {
	creds := store.NewTokenHolder(signToken(t, "user-1", "secret"))
	client := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return nil, errors.New("connection refused") }}
	s := NewHTTPStore("http://rows.test", creds, WithHTTPClient(client), WithRetry(1))
	err := s.SaveActiveGame(context.Background(), &match.ActiveGame{ID: "a", Mode: match.ModeRace})
	if store.Classify(err) != store.ClassTransport {
		t.Fatalf("dial failure should classify as transport, got %v", err)
	}
}
