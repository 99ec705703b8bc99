package mysql

const upsertAppSQL = `
INSERT INTO apps
  (id, name, developer, rating, rating_count, logo_url, file_size_bytes,
   release_date, current_version_release_date, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name                         = VALUES(name),
  developer                    = VALUES(developer),
  rating                       = VALUES(rating),
  rating_count                 = VALUES(rating_count),
  logo_url                     = VALUES(logo_url),
  file_size_bytes              = VALUES(file_size_bytes),
  release_date                 = COALESCE(VALUES(release_date), apps.release_date),
  current_version_release_date = COALESCE(VALUES(current_version_release_date), apps.current_version_release_date),
  raw                          = COALESCE(VALUES(raw), apps.raw),
  updated_at                   = CURRENT_TIMESTAMP
`

// Note: `content` is quoted to keep it clear of the CONTENT keyword.
const insertReviewsPrefix = "INSERT INTO reviews\n  (app_id, review_id, author, rating, title, `content`, version, region, reviewed_at)\nVALUES "

// A review seen again from a later run keeps its first region.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author      = VALUES(author),\n" +
	"  rating      = VALUES(rating),\n" +
	"  title       = VALUES(title),\n" +
	"  `content`   = VALUES(`content`),\n" +
	"  version     = COALESCE(VALUES(version), reviews.version),\n" +
	"  reviewed_at = VALUES(reviewed_at)\n"

const insertRunSQL = `
INSERT INTO collection_runs
  (id, app_id, region, target, collected, regions, started_at, finished_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Newest first; (reviewed_at, review_id) is also the keyset cursor.
const listReviewsSQL = `
SELECT review_id, author, rating, title, ` + "`content`" + `, version, region, reviewed_at
FROM reviews
WHERE app_id = ?
  AND (? = '' OR region = ?)
  AND (? IS NULL OR reviewed_at < ? OR (reviewed_at = ? AND review_id < ?))
ORDER BY reviewed_at DESC, review_id DESC
LIMIT ?
`
