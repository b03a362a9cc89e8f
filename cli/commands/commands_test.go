package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/cli/internal/config"
	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/runtime/client"
)

const testConfig = "host: db.test\nport: 3306\nuser: app\nschema: shop\n"

type harness struct {
	app *app
	fs  afero.Fs
	out *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fs := afero.NewMemMapFs()
	prevFs, prevOut, prevNoColor := config.AppFs, ui.Out, color.NoColor
	out := &bytes.Buffer{}
	config.AppFs, ui.Out, color.NoColor = fs, out, true
	t.Cleanup(func() {
		config.AppFs, ui.Out, color.NoColor = prevFs, prevOut, prevNoColor
	})
	t.Setenv("DATABASE_URL", "")

	require.NoError(t, afero.WriteFile(fs, "/q.yaml", []byte(testConfig), 0644))

	a := newApp()
	a.promptPassword = func() (string, error) { return "", errors.New("unexpected prompt") }
	return &harness{app: a, fs: fs, out: out}
}

// withMock routes the client to a sqlmock connection
func (h *harness) withMock(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	h.app.clientOptions = append(h.app.clientOptions, client.WithConnector(client.ConnectorFunc(
		func(ctx context.Context) (client.Conn, error) {
			return client.NewDBConn(ctx, db)
		})))
	return mock
}

func (h *harness) run(args ...string) error {
	root := newRootCommand(h.app)
	root.SetArgs(append([]string{"--config", "/q.yaml"}, args...))
	root.SetOut(h.out)
	root.SetErr(h.out)
	return root.ExecuteContext(context.Background())
}

func TestQueryCommand_Select(t *testing.T) {
	h := newHarness(t)
	mock := h.withMock(t)

	mock.ExpectPrepare("SELECT id, name FROM users WHERE id IN (?, ?) AND active = ?").
		ExpectQuery().
		WithArgs(1, 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), []byte("ada")))
	mock.ExpectClose()

	err := h.run("query", "SELECT id, name FROM users WHERE id IN (:ids) AND active = :active",
		"--param", "ids=[1, 2]", "-p", "active=true")
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "ada")
	assert.Contains(t, out, "1 row(s)")
	assert.Contains(t, out, "statement cache: 0 hit(s), 1 miss(es)")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryCommand_RawInTransaction(t *testing.T) {
	h := newHarness(t)
	mock := h.withMock(t)

	mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO t VALUES (1)").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("DELETE FROM t WHERE id = 2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	err := h.run("query", "--raw", "--tx", "INSERT INTO t VALUES (1)", "DELETE FROM t WHERE id = 2")
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "Query OK, 1 row(s) affected, last insert id 5")
	assert.Contains(t, out, "Query OK, 0 row(s) affected\n")
	assert.NotContains(t, out, "statement cache")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryCommand_Errors(t *testing.T) {
	h := newHarness(t)

	err := h.run("query", "SELECT 1", "--param", "broken")
	assert.ErrorContains(t, err, `invalid parameter "broken"`)

	err = h.run("query")
	assert.Error(t, err)
}

func TestQueryCommand_MissingParamSendsNothing(t *testing.T) {
	h := newHarness(t)
	mock := h.withMock(t)

	err := h.run("query", "SELECT * FROM t WHERE id = :id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPingCommand(t *testing.T) {
	h := newHarness(t)
	mock := h.withMock(t)

	mock.ExpectPrepare("SELECT VERSION() AS version").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("5.7.44-log"))
	mock.ExpectClose()

	require.NoError(t, h.run("ping"))

	out := h.out.String()
	assert.Contains(t, out, "Connected to db.test:3306")
	assert.Contains(t, out, "MySQL 5.7.44")
	assert.Contains(t, out, "LOCK IN SHARE MODE")
}

func TestRenderCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/stmt.yaml", []byte(`
select: [id, name]
from: [users]
where: id IN (:ids) AND name = :name
params:
  ids: [1, 2]
  name: ada
`), 0644))

	require.NoError(t, h.run("render", "/stmt.yaml"))

	out := h.out.String()
	assert.Contains(t, out, "SELECT `id`, `name` FROM `users` WHERE id IN (:ids) AND name = :name")
	assert.Contains(t, out, "SELECT `id`, `name` FROM `users` WHERE id IN (?, ?) AND name = ?")
	assert.Contains(t, out, "iis")
	assert.Contains(t, out, "[1, 2]")
}

func TestRenderCommand_MissingValue(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/stmt.yaml", []byte("from: [users]\nwhere: id = :id\n"), 0644))

	require.NoError(t, h.run("render", "/stmt.yaml"))
	assert.Contains(t, h.out.String(), "WHERE id = :id")
	assert.Contains(t, h.out.String(), "⚠")
}

func TestRenderCommand_Invalid(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/stmt.yaml", []byte("operation: delete\ntable: users\n"), 0644))

	err := h.run("render", "/stmt.yaml")
	assert.ErrorContains(t, err, "WHERE")
}

func TestRendered_Markdown(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/stmt.yaml", []byte("from: [users]\nwhere: id = :id\nparams:\n  id: 7\n"), 0644))

	r, err := compileFile("/stmt.yaml")
	require.NoError(t, err)
	assert.Equal(t,
		"```sql\nSELECT * FROM `users` WHERE id = :id\n```\n\n"+
			"Prepared with types `i`:\n\n```sql\nSELECT * FROM `users` WHERE id = ?\n```\n\n"+
			"| param | value |\n|---|---|\n| `id` | 7 |\n",
		r.markdown())
}

func TestResolveOptions(t *testing.T) {
	h := newHarness(t)

	cmd := newRootCommand(h.app)
	cmd.SetArgs([]string{"--config", "/q.yaml", "config", "show"})
	require.NoError(t, cmd.Execute())
	got, err := h.app.resolveOptions()
	require.NoError(t, err)
	assert.Equal(t, "db.test", got.Host)
	assert.Equal(t, "shop", got.Schema)
	assert.True(t, got.StmtCache)

	h.app.dsn = "root@tcp(other:3310)/main"
	got, err = h.app.resolveOptions()
	require.NoError(t, err)
	assert.Equal(t, "other", got.Host)
	assert.Equal(t, 3310, got.Port)
	assert.True(t, got.StmtCache)

	h.app.askPassword = true
	h.app.promptPassword = func() (string, error) { return "s3cret", nil }
	got, err = h.app.resolveOptions()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.Password)

	h.app.dsn = "tcp(broken"
	_, err = h.app.resolveOptions()
	assert.ErrorContains(t, err, "invalid --dsn")
}

func TestConfigShow_MasksPassword(t *testing.T) {
	h := newHarness(t)
	h.app.askPassword = true
	h.app.promptPassword = func() (string, error) { return "s3cret", nil }

	require.NoError(t, h.run("config", "show"))
	out := h.out.String()
	assert.Contains(t, out, "db.test")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "s3cret")
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("version", "--short"))
	assert.Contains(t, h.out.String(), "quarry 0.1.0")
}

func TestValidPort(t *testing.T) {
	assert.NoError(t, validPort("3306"))
	assert.ErrorIs(t, validPort("0"), errInvalidPort)
	assert.ErrorIs(t, validPort("abc"), errInvalidPort)
	assert.ErrorIs(t, validPort(70000), errInvalidPort)
}
