package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Ключ advisory-блокировки, под которой мигрирует схема заказов.
const ordersSchemaLockKey = int64(0x6f72646572)

const schemaMigrationsDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

//go:embed sql/migrations/*.sql
var embeddedMigrations embed.FS

// 0001_create_orders.up.sql -> версия, имя, направление.
var migrationFileName = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)

type migrationDirection string

const (
	migrationUp   migrationDirection = "up"
	migrationDown migrationDirection = "down"
)

// schemaMigration — пара up/down скриптов одной версии схемы.
type schemaMigration struct {
	version int64
	name    string
	up      string
	down    string
}

func (m schemaMigration) label() string {
	return fmt.Sprintf("%04d_%s", m.version, m.name)
}

func (m schemaMigration) script(direction migrationDirection) string {
	if direction == migrationDown {
		return m.down
	}
	return m.up
}

// migrationPlan упорядочен по возрастанию версии.
type migrationPlan []schemaMigration

func (p migrationPlan) find(version int64) (schemaMigration, bool) {
	i := sort.Search(len(p), func(i int) bool { return p[i].version >= version })
	if i < len(p) && p[i].version == version {
		return p[i], true
	}
	return schemaMigration{}, false
}

func (p migrationPlan) pending(applied []int64) migrationPlan {
	done := make(map[int64]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	var out migrationPlan
	for _, m := range p {
		if _, ok := done[m.version]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// MigrationState описывает состояние схемы.
type MigrationState struct {
	// Version - максимальная применённая версия, 0 для пустой базы.
	Version int64
	Applied int
	// Pending - число встроенных миграций, ещё не применённых к базе.
	Pending int
}

// MigrateUp применяет не более steps ожидающих миграций; steps=0 применяет все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationUp, steps)
}

// MigrateDown откатывает steps последних миграций; steps<=0 откатывает одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.migrate(ctx, migrationDown, steps)
}

// MigrationStatus возвращает текущую версию схемы и число применённых и ожидающих миграций.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationState, error) {
	if s == nil || s.db == nil {
		return MigrationState{}, errors.New("postgres store is not initialized")
	}
	plan, err := readMigrations(embeddedMigrations)
	if err != nil {
		return MigrationState{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return MigrationState{}, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, s.db)
	if err != nil {
		return MigrationState{}, err
	}

	state := MigrationState{
		Applied: len(applied),
		Pending: len(plan.pending(applied)),
	}
	if len(applied) > 0 {
		state.Version = applied[len(applied)-1]
	}
	return state, nil
}

func (s *Store) migrate(ctx context.Context, direction migrationDirection, steps int) error {
	if s == nil || s.db == nil {
		return errors.New("postgres store is not initialized")
	}
	if direction != migrationUp && direction != migrationDown {
		return fmt.Errorf("unsupported migration direction: %s", direction)
	}
	plan, err := readMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	return s.withSchemaLock(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, schemaMigrationsDDL); err != nil {
			return fmt.Errorf("ensure schema_migrations: %w", err)
		}
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}

		batch, err := selectBatch(plan, applied, direction, steps)
		if err != nil {
			return err
		}
		for _, m := range batch {
			if err := runMigration(ctx, conn, m, direction); err != nil {
				return err
			}
		}
		return nil
	})
}

// selectBatch выбирает миграции для прогона: ожидающие по возрастанию для up,
// последние применённые по убыванию для down.
func selectBatch(plan migrationPlan, applied []int64, direction migrationDirection, steps int) (migrationPlan, error) {
	if direction == migrationUp {
		batch := plan.pending(applied)
		if steps > 0 && len(batch) > steps {
			batch = batch[:steps]
		}
		return batch, nil
	}

	var batch migrationPlan
	for i := len(applied) - 1; i >= 0 && len(batch) < steps; i-- {
		m, ok := plan.find(applied[i])
		if !ok {
			return nil, fmt.Errorf("cannot rollback unknown migration version %d", applied[i])
		}
		batch = append(batch, m)
	}
	return batch, nil
}

// withSchemaLock держит advisory-блокировку на одном соединении, чтобы реплики не мигрировали параллельно.
func (s *Store) withSchemaLock(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", ordersSchemaLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock($1)", ordersSchemaLockKey)
	}()

	return fn(conn)
}

// runMigration выполняет скрипт и запись в schema_migrations одной транзакцией.
func runMigration(ctx context.Context, conn *sql.Conn, m schemaMigration, direction migrationDirection) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s %s: %w", direction, m.label(), err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.script(direction)); err != nil {
		return fmt.Errorf("%s %s: %w", direction, m.label(), err)
	}

	if direction == migrationUp {
		_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.version)
	}
	if err != nil {
		return fmt.Errorf("record %s %s: %w", direction, m.label(), err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s %s: %w", direction, m.label(), err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// appliedVersions возвращает применённые версии по возрастанию.
func appliedVersions(ctx context.Context, q queryer) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}
	return versions, nil
}

// readMigrations собирает план из файлов sql/migrations/NNNN_name.{up,down}.sql.
func readMigrations(fsys fs.FS) (migrationPlan, error) {
	files, err := fs.Glob(fsys, "sql/migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*schemaMigration)
	for _, file := range files {
		base := path.Base(file)
		parts := migrationFileName.FindStringSubmatch(base)
		if parts == nil {
			return nil, fmt.Errorf("invalid migration file name: %s", base)
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", base, err)
		}

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", base, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &schemaMigration{version: version, name: parts[2]}
			byVersion[version] = m
		}
		if m.name != parts[2] {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", version, m.name, parts[2])
		}

		target := &m.up
		if migrationDirection(parts[3]) == migrationDown {
			target = &m.down
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", parts[3], version)
		}
		*target = body
	}

	plan := make(migrationPlan, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" || m.down == "" {
			return nil, fmt.Errorf("migration %s must have both up and down files", m.label())
		}
		plan = append(plan, *m)
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].version < plan[j].version })
	return plan, nil
}
