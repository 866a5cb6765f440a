package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soaringjerry/VisitPulse/internal/models"
)

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const responseColumns = `id, name, name_key, visitor_token, age, visiting_with,
	visiting_with_other, topic_ranking, most_important_topic, feeling_before,
	confidence_before, knowledge_before, feeling_after, action_choice,
	confidence_after, learned_something_new, most_interesting_learned, result,
	is_new_checkout_user, phase, created_at, updated_at`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) InsertResponse(ctx context.Context, r *models.SurveyResponse) (*models.SurveyResponse, error) {
	args, err := responseArgs(r)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO survey_responses (
		name, name_key, visitor_token, age, visiting_with, visiting_with_other,
		topic_ranking, most_important_topic, feeling_before, confidence_before,
		knowledge_before, feeling_after, action_choice, confidence_after,
		learned_something_new, most_interesting_learned, result,
		is_new_checkout_user, phase, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return nil, fmt.Errorf("insert survey response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert survey response: %w", err)
	}
	out := r.Clone()
	out.ID = id
	return out, nil
}

func (s *SQLiteStore) UpdateResponse(ctx context.Context, r *models.SurveyResponse) (bool, error) {
	args, err := responseArgs(r)
	if err != nil {
		return false, err
	}
	args = append(args, r.ID)
	res, err := s.db.ExecContext(ctx, `UPDATE survey_responses SET
		name = ?, name_key = ?, visitor_token = ?, age = ?, visiting_with = ?,
		visiting_with_other = ?, topic_ranking = ?, most_important_topic = ?,
		feeling_before = ?, confidence_before = ?, knowledge_before = ?,
		feeling_after = ?, action_choice = ?, confidence_after = ?,
		learned_something_new = ?, most_interesting_learned = ?, result = ?,
		is_new_checkout_user = ?, phase = ?, created_at = ?, updated_at = ?
	WHERE id = ?`, args...)
	if err != nil {
		return false, fmt.Errorf("update survey response %d: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update survey response %d: %w", r.ID, err)
	}
	return n > 0, nil
}

// GetResponse returns nil, nil when no row has id.
func (s *SQLiteStore) GetResponse(ctx context.Context, id int64) (*models.SurveyResponse, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM survey_responses WHERE id = ?`, id)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey response %d: %w", id, err)
	}
	return r, nil
}

func (s *SQLiteStore) ListResponses(ctx context.Context) ([]*models.SurveyResponse, error) {
	return s.query(ctx, `SELECT `+responseColumns+` FROM survey_responses ORDER BY id`)
}

// ListResponsesByNameKey returns the rows sharing nameKey, newest first.
func (s *SQLiteStore) ListResponsesByNameKey(ctx context.Context, nameKey string) ([]*models.SurveyResponse, error) {
	return s.query(ctx, `SELECT `+responseColumns+` FROM survey_responses
		WHERE name_key = ? ORDER BY created_at DESC, id DESC`, nameKey)
}

func (s *SQLiteStore) DeleteAllResponses(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM survey_responses`)
	if err != nil {
		return 0, fmt.Errorf("delete survey responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete survey responses: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*models.SurveyResponse, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query survey responses: %w", err)
	}
	defer rows.Close()
	out := []*models.SurveyResponse{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey response: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate survey responses: %w", err)
	}
	return out, nil
}

// responseArgs lists r's columns in insert order, without id.
func responseArgs(r *models.SurveyResponse) ([]any, error) {
	ranking, err := encodeJSON(r.TopicRanking)
	if err != nil {
		return nil, fmt.Errorf("encode topic ranking: %w", err)
	}
	return []any{
		r.Name,
		r.NameKey,
		r.VisitorToken,
		toNullInt(r.Age),
		toNullString(r.VisitingWith),
		toNullString(r.VisitingWithOther),
		ranking,
		toNullString(r.MostImportantTopic),
		toNullInt(r.FeelingBefore),
		toNullInt(r.ConfidenceBefore),
		toNullInt(r.KnowledgeBefore),
		toNullInt(r.FeelingAfter),
		toNullString(r.ActionChoice),
		toNullInt(r.ConfidenceAfter),
		toNullBool(r.LearnedSomethingNew),
		toNullString(r.MostInterestingLearned),
		toNullString(r.Result),
		boolToInt64(r.IsNewCheckoutUser),
		string(r.Phase),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(sc scanner) (*models.SurveyResponse, error) {
	var (
		r                                                   models.SurveyResponse
		age, feelBefore, confBefore, knowBefore             sql.NullInt64
		feelAfter, confAfter, learned                       sql.NullInt64
		visitingWith, visitingOther, ranking, topic, action sql.NullString
		interesting, result                                 sql.NullString
		isNew                                               int64
		phase, created, updated                             string
	)
	err := sc.Scan(&r.ID, &r.Name, &r.NameKey, &r.VisitorToken, &age, &visitingWith,
		&visitingOther, &ranking, &topic, &feelBefore, &confBefore, &knowBefore,
		&feelAfter, &action, &confAfter, &learned, &interesting, &result,
		&isNew, &phase, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.Age = intPtr(age)
	r.VisitingWith = visitingWith.String
	r.VisitingWithOther = visitingOther.String
	if r.TopicRanking, err = decodeStrings(ranking); err != nil {
		return nil, fmt.Errorf("decode topic ranking of %d: %w", r.ID, err)
	}
	r.MostImportantTopic = topic.String
	r.FeelingBefore = intPtr(feelBefore)
	r.ConfidenceBefore = intPtr(confBefore)
	r.KnowledgeBefore = intPtr(knowBefore)
	r.FeelingAfter = intPtr(feelAfter)
	r.ActionChoice = action.String
	r.ConfidenceAfter = intPtr(confAfter)
	if learned.Valid {
		r.LearnedSomethingNew = models.Bool(learned.Int64 != 0)
	}
	r.MostInterestingLearned = interesting.String
	r.Result = result.String
	r.IsNewCheckoutUser = isNew != 0
	r.Phase = models.Phase(phase)
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &r, nil
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func toNullBool(p *bool) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: boolToInt64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func encodeJSON(v []string) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeStrings(ns sql.NullString) ([]string, error) {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
