// Package remote implements store.Store against per-user remote backends:
// a PostgREST-style row API over HTTP and a direct Postgres connection.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/codec"
	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/store"
)

const (
	pathGames       = "/rest/v1/games"
	pathActiveGames = "/rest/v1/active_games"
)

type gameRow struct {
	codec.StoredGame
	UserID string `json:"user_id,omitempty"`
}

type activeRow struct {
	codec.StoredActiveGame
	UserID string `json:"user_id,omitempty"`
}

// apiError is the error body returned by the row API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

type HTTPStore struct {
	baseURL string
	apiKey  string
	http    *fasthttp.Client
	creds   store.Credentials
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*HTTPStore)

func WithTimeout(d time.Duration) Option {
	return func(s *HTTPStore) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(s *HTTPStore) { s.retryMax = max }
}

func WithAPIKey(key string) Option {
	return func(s *HTTPStore) { s.apiKey = strings.TrimSpace(key) }
}

func WithHTTPClient(c *fasthttp.Client) Option {
	return func(s *HTTPStore) {
		if c != nil {
			s.http = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *HTTPStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewHTTPStore(baseURL string, creds store.Credentials, opts ...Option) *HTTPStore {
	s := &HTTPStore{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		creds:          creds,
		logger:         zap.NewNop(),
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPStore) GetActiveGame(ctx context.Context) (*match.ActiveGame, error) {
	tok, uid, err := s.identity()
	if err != nil {
		return nil, err
	}
	var rows []activeRow
	q := query{{"select", "*"}, {"user_id", "eq." + uid}, {"limit", "1"}}
	if err := s.do(ctx, "get_active_game", fasthttp.MethodGet, pathActiveGames, q, tok, nil, nil, &rows, true); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToActive()
}

func (s *HTTPStore) SaveActiveGame(ctx context.Context, game *match.ActiveGame) error {
	tok, uid, err := s.identity()
	if err != nil {
		return err
	}
	if game == nil {
		q := query{{"user_id", "eq." + uid}}
		return s.do(ctx, "clear_active_game", fasthttp.MethodDelete, pathActiveGames, q, tok, nil, nil, nil, false)
	}
	row := activeRow{StoredActiveGame: *codec.FromActive(game), UserID: uid}
	q := query{{"on_conflict", "user_id"}}
	prefer := map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}
	return s.do(ctx, "save_active_game", fasthttp.MethodPost, pathActiveGames, q, tok, prefer, []activeRow{row}, nil, false)
}

func (s *HTTPStore) GetPastGames(ctx context.Context) ([]*match.Game, error) {
	tok, uid, err := s.identity()
	if err != nil {
		return nil, err
	}
	var rows []gameRow
	q := query{{"select", "*"}, {"user_id", "eq." + uid}, {"order", "date.desc"}}
	if err := s.do(ctx, "get_past_games", fasthttp.MethodGet, pathGames, q, tok, nil, nil, &rows, true); err != nil {
		return nil, err
	}
	games := make([]*match.Game, 0, len(rows))
	for _, r := range rows {
		g, err := r.ToGame()
		if err != nil {
			s.logger.Warn("remote_game_skipped", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		games = append(games, g)
	}
	return games, nil
}

func (s *HTTPStore) AddGame(ctx context.Context, game *match.Game) error {
	if game == nil {
		return nil
	}
	tok, uid, err := s.identity()
	if err != nil {
		return err
	}
	row := gameRow{StoredGame: *codec.FromGame(game), UserID: uid}
	q := query{{"on_conflict", "id"}}
	prefer := map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}
	return s.do(ctx, "add_game", fasthttp.MethodPost, pathGames, q, tok, prefer, []gameRow{row}, nil, false)
}

func (s *HTTPStore) DeleteGame(ctx context.Context, id string) error {
	tok, uid, err := s.identity()
	if err != nil {
		return err
	}
	q := query{{"id", "eq." + strings.TrimSpace(id)}, {"user_id", "eq." + uid}}
	return s.do(ctx, "delete_game", fasthttp.MethodDelete, pathGames, q, tok, nil, nil, nil, false)
}

// identity returns the bearer token and the user it belongs to. The row API
// verifies the signature; here the subject is only read to scope queries.
func (s *HTTPStore) identity() (string, string, error) {
	if s.creds == nil {
		return "", "", store.ErrNoCredential
	}
	tok, ok := s.creds.Token()
	if !ok {
		return "", "", store.ErrNoCredential
	}
	uid, err := subjectUnverified(tok)
	if err != nil {
		return "", "", &store.RemoteError{Op: "identity", Status: 401, Message: "jwt: " + err.Error()}
	}
	return tok, uid, nil
}

func subjectUnverified(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sub) == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

type query [][2]string

func (s *HTTPStore) do(ctx context.Context, op, method, path string, q query, token string, headers map[string]string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(s.baseURL + path)
	args := req.URI().QueryArgs()
	for _, kv := range q {
		args.Add(kv[0], kv[1])
	}
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && s.retryMax > 0 {
		attempts = s.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &store.RemoteError{Op: op, Err: err}
		}
		err := s.http.DoDeadline(req, resp, s.computeDeadline(ctx))
		if err != nil {
			lastErr = &store.RemoteError{Op: op, Err: err}
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = decodeAPIError(op, status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			s.logger.Debug("remote_retry", zap.String("op", op), zap.Int("status", status), zap.Int("attempt", attempt))
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil && len(resp.Body()) > 0 {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode %s response: %w", op, err)
			}
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeAPIError(op string, status int, body []byte) *store.RemoteError {
	re := &store.RemoteError{Op: op, Status: status}
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && (ae.Code != "" || ae.Message != "") {
		re.Code = ae.Code
		re.Message = ae.Message
		re.Hint = ae.Hint
		return re
	}
	re.Message = truncate(strings.TrimSpace(string(body)), 512)
	return re
}

func (s *HTTPStore) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(s.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ store.Store = (*HTTPStore)(nil)
