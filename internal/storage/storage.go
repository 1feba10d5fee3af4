package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"todolist/internal/todo"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrStorage  = errors.New("storage failure")
	ErrClosed   = errors.New("store is closed")
)

// Fixed width so that text order in SQLite equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store owns the tasks table. All operations run one at a time on a private
// goroutine, whichever goroutine calls them.
type Store struct {
	db      *sql.DB
	ops     chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}

	s := &Store{
		db:      db,
		ops:     make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

func (s *Store) loop() {
	defer close(s.stopped)
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.quit:
			return
		}
	}
}

// Close waits for the running operation, if any, then closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.quit)
		<-s.stopped
		err = s.db.Close()
	})
	return err
}

// do hands fn to the store goroutine and waits for its result.
func (s *Store) do(ctx context.Context, fn func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	op := func() { errc <- fn(ctx) }
	select {
	case s.ops <- op:
	case <-s.quit:
		return fmt.Errorf("%w: %w", ErrStorage, ErrClosed)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrStorage, ctx.Err())
	}
	return <-errc
}

func ensureSchema(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);`
	if _, err := db.Exec(ddl); err != nil {
		return err
	}
	if err := ensureTaskColumns(db); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS tasks_created_at ON tasks (created_at);`)
	return err
}

func ensureTaskColumns(db *sql.DB) error {
	required := map[string]string{
		"description": "ALTER TABLE tasks ADD COLUMN description TEXT DEFAULT NULL;",
	}
	existing := map[string]struct{}{}
	rows, err := db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	// The single connection must be released before the ALTERs can run.
	rows.Close()
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

// FetchAll returns every task, newest first.
func (s *Store) FetchAll(ctx context.Context) ([]todo.Task, error) {
	var tasks []todo.Task
	err := s.do(ctx, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, title, description, completed, created_at FROM tasks ORDER BY created_at DESC, id DESC;`)
		if err != nil {
			return fmt.Errorf("%w: fetch tasks: %w", ErrStorage, err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("%w: scan task: %w", ErrStorage, err)
			}
			tasks = append(tasks, t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: fetch tasks: %w", ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) Get(ctx context.Context, id int) (todo.Task, error) {
	var t todo.Task
	err := s.do(ctx, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, title, description, completed, created_at FROM tasks WHERE id = ?;`, id)
		var err error
		t, err = scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("%w: get task %d: %w", ErrStorage, id, err)
		}
		return nil
	})
	return t, err
}

// Create inserts t. A zero ID is replaced with max(id)+1 inside the insert's
// transaction; a non-zero ID is kept as given.
func (s *Store) Create(ctx context.Context, t todo.Task) (todo.Task, error) {
	err := s.do(ctx, func(ctx context.Context) error {
		return s.inTx(ctx, "create task", func(tx *sql.Tx) error {
			if t.ID == 0 {
				id, err := nextID(ctx, tx)
				if err != nil {
					return err
				}
				t.ID = id
			}
			return insertTask(ctx, tx, t)
		})
	})
	if err != nil {
		return todo.Task{}, err
	}
	return t, nil
}

// Update overwrites the title, description, completion flag and creation time
// of the stored task with t.ID.
func (s *Store) Update(ctx context.Context, t todo.Task) (todo.Task, error) {
	err := s.do(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE tasks SET title = ?, description = ?, completed = ?, created_at = ? WHERE id = ?;`,
			t.Title, t.Description, boolToInt(t.Completed), formatTime(t.CreatedAt), t.ID)
		if err != nil {
			return fmt.Errorf("%w: update task %d: %w", ErrStorage, t.ID, err)
		}
		return requireAffected(res, t.ID)
	})
	if err != nil {
		return todo.Task{}, err
	}
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id int) error {
	return s.do(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("%w: delete task %d: %w", ErrStorage, id, err)
		}
		return requireAffected(res, id)
	})
}

// ReplaceAll deletes every stored task and inserts tasks in one transaction.
// Nothing changes if any insert fails.
func (s *Store) ReplaceAll(ctx context.Context, tasks []todo.Task) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inTx(ctx, "replace tasks", func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM tasks;`); err != nil {
				return err
			}
			for _, t := range tasks {
				if err := insertTask(ctx, tx, t); err != nil {
					return fmt.Errorf("insert task %d: %w", t.ID, err)
				}
			}
			return nil
		})
	})
}

// NextID returns max(id)+1, or 1 for an empty store.
func (s *Store) NextID(ctx context.Context) (int, error) {
	var id int
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		id, err = nextID(ctx, s.db)
		if err != nil {
			return fmt.Errorf("%w: next id: %w", ErrStorage, err)
		}
		return nil
	})
	return id, err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func(ctx context.Context) error {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks;`).Scan(&n); err != nil {
			return fmt.Errorf("%w: count tasks: %w", ErrStorage, err)
		}
		return nil
	})
	return n, err
}

func (s *Store) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: begin: %w", ErrStorage, what, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStorage, what, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s: commit: %w", ErrStorage, what, err)
	}
	committed = true
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nextID(ctx context.Context, q queryer) (int, error) {
	var id int
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM tasks;`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func insertTask(ctx context.Context, tx *sql.Tx, t todo.Task) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, completed, created_at) VALUES (?, ?, ?, ?, ?);`,
		t.ID, t.Title, t.Description, boolToInt(t.Completed), formatTime(t.CreatedAt))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (todo.Task, error) {
	var t todo.Task
	var completed int
	var createdStr string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &completed, &createdStr); err != nil {
		return todo.Task{}, err
	}
	t.Completed = completed == 1
	created, err := time.Parse(timeLayout, createdStr)
	if err != nil {
		// Rows written by hand or by older builds may use plain RFC 3339.
		created, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return todo.Task{}, fmt.Errorf("created_at %q: %w", createdStr, err)
		}
	}
	t.CreatedAt = created
	return t, nil
}

func requireAffected(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
