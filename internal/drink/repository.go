package drink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// mysqlDupEntry is ER_DUP_ENTRY.
const mysqlDupEntry = 1062

// Repository persists drinks through sqlx.  Queries use `?` placeholders,
// which both the sqlite3 and mysql drivers accept.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

type row struct {
	ID     int64  `db:"id"`
	Title  string `db:"title"`
	Recipe string `db:"recipe"`
}

func (r row) drink() (Drink, error) {
	recipe, err := UnmarshalRecipe([]byte(r.Recipe))
	if err != nil {
		return Drink{}, fmt.Errorf("drink %d recipe: %w", r.ID, err)
	}
	return Drink{ID: r.ID, Title: r.Title, Recipe: recipe}, nil
}

// List returns every drink ordered by id.
func (r *Repository) List(ctx context.Context) ([]Drink, error) {
	const q = `SELECT id, title, recipe FROM drink ORDER BY id`

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}

	out := make([]Drink, 0, len(rows))
	for _, rw := range rows {
		d, err := rw.drink()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Get returns the drink with id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (Drink, error) {
	const q = `SELECT id, title, recipe FROM drink WHERE id = ?`

	var rw row
	if err := r.db.GetContext(ctx, &rw, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Drink{}, ErrNotFound
		}
		return Drink{}, err
	}
	return rw.drink()
}

// Create inserts a new drink.  Titles are unique; a concurrent insert that
// slips past the pre-check is caught by the UNIQUE index and reported as
// ErrDuplicateTitle too.
func (r *Repository) Create(ctx context.Context, in Input) (Drink, error) {
	if err := in.Validate(); err != nil {
		return Drink{}, err
	}
	if err := r.ensureTitleFree(ctx, in.Title, 0); err != nil {
		return Drink{}, err
	}

	recipe, err := json.Marshal(in.Recipe)
	if err != nil {
		return Drink{}, err
	}

	const q = `INSERT INTO drink (title, recipe) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, in.Title, string(recipe))
	if err != nil {
		return Drink{}, mapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Drink{}, err
	}
	return Drink{ID: id, Title: in.Title, Recipe: in.Recipe}, nil
}

// Update applies p to the drink with id and returns the result.
func (r *Repository) Update(ctx context.Context, id int64, p Patch) (Drink, error) {
	if err := p.Validate(); err != nil {
		return Drink{}, err
	}

	d, err := r.Get(ctx, id)
	if err != nil {
		return Drink{}, err
	}
	if p.Title != nil && *p.Title != d.Title {
		if err := r.ensureTitleFree(ctx, *p.Title, id); err != nil {
			return Drink{}, err
		}
		d.Title = *p.Title
	}
	if p.Recipe != nil {
		d.Recipe = *p.Recipe
	}

	recipe, err := json.Marshal(d.Recipe)
	if err != nil {
		return Drink{}, err
	}

	const q = `UPDATE drink SET title = ?, recipe = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, d.Title, string(recipe), id); err != nil {
		return Drink{}, mapConstraint(err)
	}
	return d, nil
}

// Delete removes the drink with id, or reports ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM drink WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ensureTitleFree reports ErrDuplicateTitle when another drink (any id other
// than self) already uses title.
func (r *Repository) ensureTitleFree(ctx context.Context, title string, self int64) error {
	const q = `SELECT COUNT(*) FROM drink WHERE title = ? AND id <> ?`

	var n int
	if err := r.db.GetContext(ctx, &n, q, title, self); err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateTitle
	}
	return nil
}

// mapConstraint turns a unique-index violation from either driver into
// ErrDuplicateTitle.  title is the only unique column besides the key.
func mapConstraint(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDupEntry {
		return ErrDuplicateTitle
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicateTitle
	}
	return err
}
