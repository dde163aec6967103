package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"
)

// Detection is one audit row. It carries outcome metadata only: neither the
// audio nor the explanation text is stored.
type Detection struct {
	ID             int64
	CreatedAt      time.Time
	RequestID      string
	AudioSHA256    string
	AudioBytes     int
	Language       string
	Engine         string
	Model          string
	Status         string
	Classification string
	Confidence     float64
	ErrorKind      string
	Attempts       int
	DurationMs     int64
}

type DetectionRepo struct{ DB *sql.DB }

func NewDetectionRepo(db *sql.DB) *DetectionRepo { return &DetectionRepo{DB: db} }

// Enabled reports whether the repo has a database behind it.
func (r *DetectionRepo) Enabled() bool { return r != nil && r.DB != nil }

const schema = `
create table if not exists detections (
    id             bigserial primary key,
    created_at     timestamptz not null default now(),
    request_id     text not null default '',
    audio_sha256   text not null default '',
    audio_bytes    integer not null default 0,
    language       text not null default '',
    engine         text not null default '',
    model          text not null default '',
    status         text not null,
    classification text,
    confidence     double precision,
    error_kind     text,
    attempts       integer not null default 0,
    duration_ms    bigint not null default 0
);
create index if not exists detections_created_at_idx on detections (created_at);`

func (r *DetectionRepo) EnsureSchema(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Insert writes one row and returns its id. A disabled repo is a no-op.
func (r *DetectionRepo) Insert(ctx context.Context, d Detection) (int64, error) {
	if !r.Enabled() {
		return 0, nil
	}
	const q = `
insert into detections(request_id, audio_sha256, audio_bytes, language, engine, model,
                       status, classification, confidence, error_kind, attempts, duration_ms)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
returning id`
	var id int64
	err := r.DB.QueryRowContext(ctx, q,
		d.RequestID, d.AudioSHA256, d.AudioBytes, d.Language, d.Engine, d.Model,
		d.Status, nullString(d.Classification), nullConfidence(d), nullString(d.ErrorKind),
		d.Attempts, d.DurationMs,
	).Scan(&id)
	return id, err
}

// Recent returns the newest rows first.
func (r *DetectionRepo) Recent(ctx context.Context, limit int) ([]Detection, error) {
	if !r.Enabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
select id, created_at, request_id, audio_sha256, audio_bytes, language, engine, model, status,
       coalesce(classification,''), coalesce(confidence,0), coalesce(error_kind,''),
       attempts, duration_ms
from detections
order by created_at desc, id desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.RequestID, &d.AudioSHA256, &d.AudioBytes,
			&d.Language, &d.Engine, &d.Model, &d.Status, &d.Classification, &d.Confidence,
			&d.ErrorKind, &d.Attempts, &d.DurationMs); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes rows older than age and returns how many were removed.
func (r *DetectionRepo) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if !r.Enabled() || age <= 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx,
		`delete from detections where created_at < $1`, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AudioDigest is the hex sha256 of the decoded audio.
func AudioDigest(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	sum := sha256.Sum256(audio)
	return hex.EncodeToString(sum[:])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullConfidence(d Detection) sql.NullFloat64 {
	return sql.NullFloat64{Float64: d.Confidence, Valid: d.Status == "success"}
}
