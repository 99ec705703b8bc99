package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"review_lens/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// max rows per multi-row INSERT; keeps statements under max_allowed_packet
const reviewBatch = 200

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertApp(ctx context.Context, a domain.AppInfo) error {
	_, err := r.db.ExecContext(ctx, upsertAppSQL,
		a.ID,
		a.Name,
		a.Developer,
		a.Rating,
		a.RatingCount,
		valStr(a.LogoURL),
		a.FileSizeBytes,
		valTime(a.ReleaseDate),
		valTime(a.CurrentVersionReleaseDate),
		valJSON(a.RawJSON),
	)
	return err
}

func (r *Repo) UpsertReviews(ctx context.Context, appID string, rs []domain.Review) error {
	for start := 0; start < len(rs); start += reviewBatch {
		if err := r.upsertReviewBatch(ctx, appID, rs[start:min(start+reviewBatch, len(rs))]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) upsertReviewBatch(ctx context.Context, appID string, rs []domain.Review) error {
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*9) // 9 params per row
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?)")
		args = append(args,
			appID,
			rv.ID,
			rv.Author,
			rv.Rating,
			rv.Title,
			rv.Content,
			valStr(rv.Version),
			rv.Region,
			rv.Date.UTC(),
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) RecordRun(ctx context.Context, run domain.CollectionRun) error {
	regions := run.Regions
	if regions == nil {
		regions = []string{}
	}
	b, err := json.Marshal(regions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertRunSQL,
		run.ID, run.AppID, run.Region, run.Target, run.Collected, string(b),
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return err
}

// ListReviews pages newest first. NextCursor is set when more rows exist.
func (r *Repo) ListReviews(ctx context.Context, appID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	var (
		curAt any
		curID string
	)
	if pg.Cursor != nil && *pg.Cursor != "" {
		at, id, err := DecodeCursor(*pg.Cursor)
		if err != nil {
			return domain.ReviewsPage{}, err
		}
		curAt, curID = at, id
	}
	region := strings.ToUpper(pg.Region)

	rows, err := r.db.QueryContext(ctx, listReviewsSQL,
		appID,
		region, region,
		curAt, curAt, curAt, curID,
		pg.Limit+1,
	)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var version sql.NullString
		if err := rows.Scan(
			&rv.ID,
			&rv.Author,
			&rv.Rating,
			&rv.Title,
			&rv.Content,
			&version,
			&rv.Region,
			&rv.Date,
		); err != nil {
			return domain.ReviewsPage{}, err
		}
		if version.Valid {
			rv.Version = version.String
		}
		rv.Date = rv.Date.UTC()
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}

	page := domain.ReviewsPage{Items: out}
	if pg.Limit > 0 && len(out) > pg.Limit {
		page.Items = out[:pg.Limit]
		last := page.Items[pg.Limit-1]
		c := EncodeCursor(last.Date, last.ID)
		page.NextCursor = &c
	}
	return page, nil
}

// EncodeCursor renders a keyset position as "<unix micros>_<review id>".
func EncodeCursor(at time.Time, id string) string {
	return strconv.FormatInt(at.UnixMicro(), 10) + "_" + id
}

func DecodeCursor(c string) (time.Time, string, error) {
	ts, id, ok := strings.Cut(c, "_")
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("%w: %q", domain.ErrInvalidCursor, c)
	}
	us, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", domain.ErrInvalidCursor, c)
	}
	return time.UnixMicro(us).UTC(), id, nil
}
