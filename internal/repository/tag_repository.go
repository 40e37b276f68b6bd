package repository

import (
	"context"
	"database/sql"

	"github.com/tixops/suggest-api/internal/database"
)

// TagRepo reads account tag assignments from the account management
// schema, used by the bulk endpoint's post-hoc tag filter.
type TagRepo struct {
	db *database.DB
}

// NewTagRepo returns a new TagRepo bound to the given database.
func NewTagRepo(db *database.DB) *TagRepo { return &TagRepo{db: db} }

// GetTagsForAccounts returns the tag ids assigned to each account id,
// in one batched query. Accounts with no tags have no map entry.
func (r *TagRepo) GetTagsForAccounts(ctx context.Context, accountIDs []string) (map[string][]string, error) {
	if len(accountIDs) == 0 {
		return map[string][]string{}, nil
	}
	q := `
		SELECT account_id, tag_id
		FROM account_tag
		WHERE account_id IN (` + placeholders(len(accountIDs)) + `)`

	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}

	out := map[string][]string{}
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(out)
		for rows.Next() {
			var accountID, tagID string
			if err := rows.Scan(&accountID, &tagID); err != nil {
				return err
			}
			out[accountID] = append(out[accountID], tagID)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
