package remote

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/codec"
	"github.com/park285/cuescore/internal/match"
	"github.com/park285/cuescore/internal/store"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS games (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	player_one           TEXT NOT NULL,
	player_two           TEXT NOT NULL,
	player_one_score     INTEGER NOT NULL,
	player_two_score     INTEGER NOT NULL,
	target_value         INTEGER NOT NULL,
	game_mode            TEXT NOT NULL,
	winner               TEXT,
	date                 BIGINT NOT NULL,
	start_time           BIGINT NOT NULL,
	end_time             BIGINT NOT NULL,
	frame_history        JSONB NOT NULL DEFAULT '[]'::jsonb,
	player_one_sets_won  INTEGER NOT NULL DEFAULT 0,
	player_two_sets_won  INTEGER NOT NULL DEFAULT 0,
	sets                 JSONB NOT NULL DEFAULT '[]'::jsonb,
	break_player         TEXT NOT NULL DEFAULT '',
	killer               JSONB
);
CREATE INDEX IF NOT EXISTS games_user_date_idx ON games (user_id, date DESC);
CREATE TABLE IF NOT EXISTS active_games (
	user_id TEXT PRIMARY KEY,
	id      TEXT NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PGStore talks to Postgres directly. The caller is identified by the
// subject of a bearer token signed with the shared HMAC secret.
type PGStore struct {
	db     *sql.DB
	secret []byte
	creds  store.Credentials
	logger *zap.Logger
}

func NewPGStore(db *sql.DB, secret string, creds store.Credentials, logger *zap.Logger) *PGStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGStore{db: db, secret: []byte(secret), creds: creds, logger: logger}
}

// EnsureSchema creates the tables when missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, pgSchema); err != nil {
		return mapPQError("ensure_schema", err)
	}
	return nil
}

func (s *PGStore) GetActiveGame(ctx context.Context) (*match.ActiveGame, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	var payload []byte
	err = s.db.QueryRowContext(ctx, `SELECT payload FROM active_games WHERE user_id = $1`, uid).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError("get_active_game", err)
	}
	return codec.DecodeActive(payload)
}

func (s *PGStore) SaveActiveGame(ctx context.Context, game *match.ActiveGame) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	if game == nil {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM active_games WHERE user_id = $1`, uid); err != nil {
			return mapPQError("clear_active_game", err)
		}
		return nil
	}
	payload, err := codec.EncodeActive(game)
	if err != nil {
		return fmt.Errorf("encode active game: %w", err)
	}
	const query = `
		INSERT INTO active_games (user_id, id, payload, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (user_id) DO UPDATE SET id = EXCLUDED.id, payload = EXCLUDED.payload, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, query, uid, game.ID, payload); err != nil {
		return mapPQError("save_active_game", err)
	}
	return nil
}

func (s *PGStore) GetPastGames(ctx context.Context) ([]*match.Game, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	const query = `
		SELECT
			id, player_one, player_two, player_one_score, player_two_score,
			target_value, game_mode, winner, date, start_time, end_time,
			frame_history, player_one_sets_won, player_two_sets_won, sets,
			break_player, killer
		FROM games
		WHERE user_id = $1
		ORDER BY date DESC`
	rows, err := s.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, mapPQError("get_past_games", err)
	}
	defer rows.Close()

	games := make([]*match.Game, 0, 16)
	for rows.Next() {
		var (
			sg         codec.StoredGame
			winner     sql.NullString
			framesJSON []byte
			setsJSON   []byte
			killerJSON []byte
		)
		if err := rows.Scan(
			&sg.ID, &sg.PlayerOne, &sg.PlayerTwo, &sg.PlayerOneScore, &sg.PlayerTwoScore,
			&sg.TargetValue, &sg.Mode, &winner, &sg.Date, &sg.StartTime, &sg.EndTime,
			&framesJSON, &sg.PlayerOneSetsWon, &sg.PlayerTwoSetsWon, &setsJSON,
			&sg.BreakPlayer, &killerJSON,
		); err != nil {
			return nil, mapPQError("scan_game", err)
		}
		if winner.Valid {
			sg.Winner = &winner.String
		}
		if err := unmarshalColumns(&sg, framesJSON, setsJSON, killerJSON); err != nil {
			s.logger.Warn("remote_game_skipped", zap.String("id", sg.ID), zap.Error(err))
			continue
		}
		g, err := sg.ToGame()
		if err != nil {
			s.logger.Warn("remote_game_skipped", zap.String("id", sg.ID), zap.Error(err))
			continue
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError("get_past_games", err)
	}
	return games, nil
}

func unmarshalColumns(sg *codec.StoredGame, frames, sets, killer []byte) error {
	if len(frames) > 0 {
		if err := json.Unmarshal(frames, &sg.FrameHistory); err != nil {
			return fmt.Errorf("frame_history: %w", err)
		}
	}
	if len(sets) > 0 {
		if err := json.Unmarshal(sets, &sg.Sets); err != nil {
			return fmt.Errorf("sets: %w", err)
		}
	}
	if len(killer) > 0 && string(killer) != "null" {
		var k codec.StoredKiller
		if err := json.Unmarshal(killer, &k); err != nil {
			return fmt.Errorf("killer: %w", err)
		}
		sg.Killer = &k
	}
	return nil
}

func (s *PGStore) AddGame(ctx context.Context, game *match.Game) error {
	if game == nil {
		return nil
	}
	uid, err := s.userID()
	if err != nil {
		return err
	}
	sg := codec.FromGame(game)
	frames, err := json.Marshal(sg.FrameHistory)
	if err != nil {
		return fmt.Errorf("marshal frame_history: %w", err)
	}
	sets, err := json.Marshal(sg.Sets)
	if err != nil {
		return fmt.Errorf("marshal sets: %w", err)
	}
	var killer any
	if sg.Killer != nil {
		raw, err := json.Marshal(sg.Killer)
		if err != nil {
			return fmt.Errorf("marshal killer: %w", err)
		}
		killer = raw
	}
	var winner sql.NullString
	if sg.Winner != nil {
		winner = sql.NullString{String: *sg.Winner, Valid: true}
	}

	const query = `
		INSERT INTO games (
			id, user_id, player_one, player_two, player_one_score, player_two_score,
			target_value, game_mode, winner, date, start_time, end_time,
			frame_history, player_one_sets_won, player_two_sets_won, sets,
			break_player, killer
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15, $16::jsonb, $17, $18::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			player_one_score = EXCLUDED.player_one_score,
			player_two_score = EXCLUDED.player_two_score,
			winner = EXCLUDED.winner,
			end_time = EXCLUDED.end_time,
			frame_history = EXCLUDED.frame_history,
			sets = EXCLUDED.sets,
			killer = EXCLUDED.killer
		WHERE games.user_id = EXCLUDED.user_id`
	_, err = s.db.ExecContext(ctx, query,
		sg.ID, uid, sg.PlayerOne, sg.PlayerTwo, sg.PlayerOneScore, sg.PlayerTwoScore,
		sg.TargetValue, sg.Mode, winner, sg.Date, sg.StartTime, sg.EndTime,
		frames, sg.PlayerOneSetsWon, sg.PlayerTwoSetsWon, sets,
		sg.BreakPlayer, killer,
	)
	if err != nil {
		return mapPQError("add_game", err)
	}
	return nil
}

func (s *PGStore) DeleteGame(ctx context.Context, id string) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1 AND user_id = $2`, strings.TrimSpace(id), uid); err != nil {
		return mapPQError("delete_game", err)
	}
	return nil
}

// userID verifies the bearer token and returns its subject.
func (s *PGStore) userID() (string, error) {
	if s.creds == nil {
		return "", store.ErrNoCredential
	}
	tok, ok := s.creds.Token()
	if !ok {
		return "", store.ErrNoCredential
	}
	if len(s.secret) == 0 {
		return "", &store.RemoteError{Op: "identity", Status: 401, Message: "jwt secret is not configured"}
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return "", &store.RemoteError{Op: "identity", Status: 401, Code: "PGRST301", Message: "jwt: " + err.Error()}
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", &store.RemoteError{Op: "identity", Status: 401, Code: "PGRST301", Message: "jwt has no subject"}
	}
	return sub, nil
}

// mapPQError converts driver failures into store.RemoteError so the gateway
// can classify them.
func mapPQError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &store.RemoteError{
			Op:      op,
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Hint:    pqErr.Hint,
		}
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return &store.RemoteError{Op: op, Err: err}
	}
	return &store.RemoteError{Op: op, Message: err.Error()}
}

var _ store.Store = (*PGStore)(nil)
