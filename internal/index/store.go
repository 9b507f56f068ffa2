package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/eliseohh/welcomebot/internal/profile"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// ProfileStore is a profile.Store on top of an in-memory SQLite database.
// Writes go through transactions on the single pooled connection, so all
// operations are serialised.
type ProfileStore struct {
	db *DB
}

var _ profile.Store = (*ProfileStore)(nil)

func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Upsert(p profile.Profile) error {
	return s.inTx(func(tx *sql.Tx) error {
		return writeProfile(tx, p)
	})
}

func (s *ProfileStore) Get(id int64) (profile.Profile, error) {
	p, found, err := loadProfile(s.db, id)
	if err != nil {
		return profile.Profile{}, err
	}
	if !found {
		return profile.New(id), nil
	}
	return p, nil
}

func (s *ProfileStore) FindByName(name string) (profile.Profile, error) {
	key := profile.NormalizeName(name)
	if key == "" {
		return profile.Profile{}, profile.ErrNotFound
	}

	var id int64
	err := s.db.QueryRow("SELECT id FROM profiles WHERE username_key = ? ORDER BY rowid LIMIT 1", key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("find profile %q: %w", key, err)
	}

	p, found, err := loadProfile(s.db, id)
	if err != nil {
		return profile.Profile{}, err
	}
	if !found {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func (s *ProfileStore) List() ([]profile.Profile, error) {
	// Collect IDs first: the pool has one connection, so rows must be
	// closed before the per-profile queries run.
	rows, err := s.db.Query("SELECT id FROM profiles")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	rows.Close()

	out := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		p, found, err := loadProfile(s.db, id)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *ProfileStore) Update(id int64, fn func(*profile.Profile)) (profile.Profile, error) {
	var out profile.Profile
	err := s.inTx(func(tx *sql.Tx) error {
		p, found, err := loadProfile(tx, id)
		if err != nil {
			return err
		}
		if !found {
			p = profile.New(id)
		}
		fn(&p)
		p.ID = id
		if err := writeProfile(tx, p); err != nil {
			return err
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (s *ProfileStore) AddUnlinked(p profile.Profile) (profile.Profile, error) {
	err := s.inTx(func(tx *sql.Tx) error {
		if key := profile.NormalizeName(p.Username); key != "" {
			var taken bool
			if err := tx.QueryRow("SELECT EXISTS (SELECT 1 FROM profiles WHERE username_key = ?)", key).Scan(&taken); err != nil {
				return fmt.Errorf("check username %q: %w", key, err)
			}
			if taken {
				return profile.ErrExists
			}
		}

		var lowest int64
		if err := tx.QueryRow("SELECT COALESCE(MIN(id), 0) FROM profiles WHERE id < 0").Scan(&lowest); err != nil {
			return fmt.Errorf("allocate unlinked id: %w", err)
		}
		p.ID = lowest - 1
		return writeProfile(tx, p)
	})
	if err != nil {
		return profile.Profile{}, err
	}
	return p.Clone(), nil
}

func (s *ProfileStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func loadProfile(q querier, id int64) (profile.Profile, bool, error) {
	p := profile.New(id)
	err := q.QueryRow("SELECT username, first_name, last_name FROM profiles WHERE id = ?", id).
		Scan(&p.Username, &p.FirstName, &p.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("load profile %d: %w", id, err)
	}

	rows, err := q.Query("SELECT question, answer FROM answers WHERE profile_id = ?", id)
	if err != nil {
		return p, false, fmt.Errorf("load answers %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			question int
			answer   string
		)
		if err := rows.Scan(&question, &answer); err != nil {
			return p, false, fmt.Errorf("load answers %d: %w", id, err)
		}
		p.Answers[question] = answer
	}
	if err := rows.Err(); err != nil {
		return p, false, fmt.Errorf("load answers %d: %w", id, err)
	}
	return p, true, nil
}

// writeProfile replaces the profile row and all of its answers. Answers are
// stored as they are; escaping already happened in Profile.SetAnswer.
func writeProfile(tx *sql.Tx, p profile.Profile) error {
	_, err := tx.Exec(`INSERT INTO profiles (id, username, username_key, first_name, last_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			username_key = excluded.username_key,
			first_name = excluded.first_name,
			last_name = excluded.last_name`,
		p.ID, p.Username, profile.NormalizeName(p.Username), p.FirstName, p.LastName)
	if err != nil {
		return fmt.Errorf("write profile %d: %w", p.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM answers WHERE profile_id = ?", p.ID); err != nil {
		return fmt.Errorf("clear answers %d: %w", p.ID, err)
	}
	for question, answer := range p.Answers {
		if _, err := tx.Exec("INSERT INTO answers (profile_id, question, answer) VALUES (?, ?, ?)", p.ID, question, answer); err != nil {
			return fmt.Errorf("write answer %d/%d: %w", p.ID, question, err)
		}
	}
	return nil
}
