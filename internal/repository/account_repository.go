package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tixops/suggest-api/internal/database"
	"github.com/tixops/suggest-api/internal/model"
)

// AccountRepo reads candidate accounts from the account management
// schema. The schema is owned by an external system; every query here
// is read-only.
type AccountRepo struct {
	db *database.DB
}

// NewAccountRepo returns a new AccountRepo bound to the given database.
func NewAccountRepo(db *database.DB) *AccountRepo { return &AccountRepo{db: db} }

// GetAccountsByCompany returns every account belonging to the company,
// optionally restricted to accounts mapped to the named point of sale.
// Address fields are left-joined so accounts without an address still
// appear (they simply rank without distance or proximity data).
func (r *AccountRepo) GetAccountsByCompany(ctx context.Context, companyID string, pos *string) ([]model.Account, error) {
	const q = `
		SELECT
			  a.id
			, a.nickname
			, a.status_code
			, e.email_address
			, p.full_name
			, COALESCE(s.abbreviation, '')
			, ma.name
			, addr.lat_long
		FROM account a
		LEFT JOIN account_address addr ON a.address_id = addr.id
		LEFT JOIN state s              ON addr.state_id = s.id
		LEFT JOIN metro_area ma        ON addr.metro_area_id = ma.id
		LEFT JOIN account_person p     ON a.person_id = p.id
		LEFT JOIN account_email e      ON a.email_id = e.id
		LEFT JOIN account_pos_mapping apm ON apm.account_id = a.id
		LEFT JOIN point_of_sale pos    ON pos.id = apm.point_of_sale_id
		WHERE a.company_id = ?
		  AND (? IS NULL OR pos.name = ?)`

	var out []model.Account
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, companyID, pos, pos)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var a model.Account
			if err := rows.Scan(&a.ID, &a.Nickname, &a.StatusCode, &a.Email,
				&a.FullName, &a.State, &a.MetroArea, &a.LatLng); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetActiveNicknames returns the nicknames of ACTIVE accounts,
// optionally filtered by company ids.
func (r *AccountRepo) GetActiveNicknames(ctx context.Context, companyIDs []string) ([]string, error) {
	q := `SELECT nickname FROM account WHERE status_code = ? AND nickname <> ''`
	args := []any{model.AccountStatusActive}
	if len(companyIDs) > 0 {
		q += ` AND company_id IN (` + placeholders(len(companyIDs)) + `)`
		for _, id := range companyIDs {
			args = append(args, id)
		}
	}

	var out []string
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// placeholders builds a "?, ?, ?" fragment of length n for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
