package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/monomind/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_init.sql", true, 1, "init"},
		{"0012_ledger_and_runs.sql", true, 12, "ledger_and_runs"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"0000_zero.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseFilename(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestChecksum(t *testing.T) {
	a := checksum([]byte("CREATE TABLE test (id INT64);"))
	assert.Equal(t, a, checksum([]byte("CREATE TABLE test (id INT64);")))
	assert.NotEqual(t, a, checksum([]byte("CREATE TABLE different (id INT64);")))
	assert.Len(t, a, 64)
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestReadMigrations(t *testing.T) {
	raw := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.runs` (id INT64);"
	dir := writeFiles(t, map[string]string{
		"0002_runs.sql": raw,
		"0001_init.sql": "SELECT 1;",
		"README.md":     "docs",
		"bad_name.sql":  "SELECT 2;",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755))

	var skipped []string
	migrations, err := readMigrations(dir, map[string]string{"PROJECT_ID": "p", "DATASET_ID": "d"}, func(name string) {
		skipped = append(skipped, name)
	})
	require.NoError(t, err)

	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "runs", migrations[1].Name)
	assert.Equal(t, "CREATE TABLE `p.d.runs` (id INT64);", migrations[1].SQL)
	assert.Equal(t, checksum([]byte(raw)), migrations[1].Checksum)
	assert.ElementsMatch(t, []string{"README.md", "bad_name.sql"}, skipped)
}

func TestReadMigrationsDuplicateVersion(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"0001_a.sql": "SELECT 1;",
		"0001_b.sql": "SELECT 2;",
	})
	_, err := readMigrations(dir, nil, nil)
	assert.ErrorContains(t, err, "duplicate migration version 0001")
}

func TestPending(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "init", Filename: "0001_init.sql", Checksum: "aaa"},
		{Version: 2, Name: "runs", Filename: "0002_runs.sql", Checksum: "bbb"},
	}

	todo, err := pending(migrations, map[int]AppliedMigration{1: {Version: 1, Checksum: "aaa"}}, false)
	require.NoError(t, err)
	require.Len(t, todo, 1)
	assert.Equal(t, 2, todo[0].Version)

	_, err = pending(migrations, map[int]AppliedMigration{1: {Version: 1, Checksum: "changed"}}, false)
	assert.ErrorContains(t, err, "0001_init.sql was modified")

	todo, err = pending(migrations, map[int]AppliedMigration{1: {Version: 1, Checksum: "changed"}}, true)
	require.NoError(t, err)
	assert.Len(t, todo, 1)

	todo, err = pending(migrations, map[int]AppliedMigration{1: {Version: 1}}, false)
	require.NoError(t, err)
	assert.Len(t, todo, 1)
}

type fakeDriver struct {
	applied map[int]AppliedMigration
	ran     []int
	failOn  int
	ensured bool
}

func (f *fakeDriver) Ensure(ctx context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeDriver) Applied(ctx context.Context) (map[int]AppliedMigration, error) {
	return f.applied, nil
}

func (f *fakeDriver) Apply(ctx context.Context, m Migration, appliedBy string) error {
	if m.Version == f.failOn {
		return errors.New("syntax error")
	}
	f.ran = append(f.ran, m.Version)
	f.applied[m.Version] = AppliedMigration{Version: m.Version, Checksum: m.Checksum, AppliedBy: appliedBy}
	return nil
}

func (f *fakeDriver) Close() error { return nil }

func TestMigrate(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"0001_init.sql": "SELECT 1;",
		"0002_more.sql": "SELECT 2;",
		"0003_last.sql": "SELECT 3;",
	})
	log := logger.NewWithWriter(&bytes.Buffer{})
	ctx := context.Background()

	t.Run("applies pending in order", func(t *testing.T) {
		d := &fakeDriver{applied: map[int]AppliedMigration{
			1: {Version: 1, Checksum: checksum([]byte("SELECT 1;"))},
		}}
		require.NoError(t, migrate(ctx, log, d, dir, nil, options{AppliedBy: "test"}))
		assert.True(t, d.ensured)
		assert.Equal(t, []int{2, 3}, d.ran)
		assert.Equal(t, "test", d.applied[3].AppliedBy)

		d.ran = nil
		require.NoError(t, migrate(ctx, log, d, dir, nil, options{}))
		assert.Empty(t, d.ran)
	})

	t.Run("dry run applies nothing", func(t *testing.T) {
		d := &fakeDriver{applied: map[int]AppliedMigration{}}
		require.NoError(t, migrate(ctx, log, d, dir, nil, options{DryRun: true}))
		assert.Empty(t, d.ran)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		d := &fakeDriver{applied: map[int]AppliedMigration{}, failOn: 2}
		err := migrate(ctx, log, d, dir, nil, options{})
		assert.ErrorContains(t, err, "0002_more.sql")
		assert.Equal(t, []int{1}, d.ran)
	})
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	dir := writeFiles(t, map[string]string{"0001_init.sql": "SELECT 1;"})
	err := run(context.Background(), logger.NewWithWriter(&bytes.Buffer{}), options{Driver: "mysql", MigrationsDir: dir})
	assert.ErrorContains(t, err, `unknown driver "mysql"`)
}

func TestRepositoryMigrationsParse(t *testing.T) {
	for _, backend := range []string{"postgres", "bigquery"} {
		t.Run(backend, func(t *testing.T) {
			dir, err := findDir(filepath.Join("migrations", backend))
			require.NoError(t, err)
			migrations, err := readMigrations(dir, map[string]string{"PROJECT_ID": "p", "DATASET_ID": "d"}, func(name string) {
				t.Errorf("unexpected file %s", name)
			})
			require.NoError(t, err)
			require.NotEmpty(t, migrations)
			assert.Equal(t, 1, migrations[0].Version)
			assert.NotContains(t, migrations[0].SQL, "{{")
		})
	}
}
