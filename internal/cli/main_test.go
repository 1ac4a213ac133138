package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/userdir/internal/cryptox"
	"github.com/dmitrijs2005/userdir/internal/server/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.DefaultParams = cryptox.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16}
	os.Exit(m.Run())
}

func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := readPassword
	readPassword = func(int) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more passwords")
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
	t.Cleanup(func() { readPassword = orig })
}

type result struct {
	code int
	out  string
	err  string
}

func run(t *testing.T, dir, stdin string, args ...string) result {
	t.Helper()
	var out, errw bytes.Buffer
	full := append([]string{"-f", dir, "-l", "error"}, args...)
	code := Main(context.Background(), full, strings.NewReader(stdin), &out, &errw)
	return result{code: code, out: out.String(), err: errw.String()}
}

// field returns the value printed as "name: value".
func field(t *testing.T, out, name string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, name+": "); ok {
			return v
		}
	}
	t.Fatalf("%s not found in output:\n%s", name, out)
	return ""
}

func TestMain_CreateListShow(t *testing.T) {
	dir := t.TempDir()

	stubPasswords(t, "pw", "pw")
	res := run(t, dir, "", "create", "-email", "a@b.c", "-ip", "10.0.0.1, 10.0.0.2")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Created user ")
	token := field(t, res.out, "authToken")

	res = run(t, dir, "", "list")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "a@b.c")
	assert.Contains(t, res.out, "[10.0.0.1 10.0.0.2]")

	res = run(t, dir, "", "show", "-token", token)
	require.Equal(t, 0, res.code, res.err)

	var r users.UserRecord
	require.NoError(t, json.Unmarshal([]byte(res.out), &r))
	assert.Equal(t, "a@b.c", r.Email)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, r.ClientIPAddressWhiteList)
	assert.True(t, strings.HasPrefix(r.Password, "$argon2id$"))

	assert.FileExists(t, filepath.Join(dir, "usersDB.json"))
}

func TestMain_CreatePasswordMismatch(t *testing.T) {
	stubPasswords(t, "pw", "other")
	res := run(t, t.TempDir(), "", "create", "-email", "a@b.c")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "passwords do not match")
}

func TestMain_LoginAndResetFlow(t *testing.T) {
	dir := t.TempDir()

	stubPasswords(t, "old", "old", "old", "new", "new")
	res := run(t, dir, "", "create", "-email", "a@b.c")
	require.Equal(t, 0, res.code, res.err)
	firstToken := field(t, res.out, "authToken")

	res = run(t, dir, "", "login", "-email", "a@b.c", "-ip", "127.0.0.1")
	require.Equal(t, 0, res.code, res.err)
	assert.NotEqual(t, firstToken, field(t, res.out, "authToken"))

	res = run(t, dir, "", "reset", "-email", "a@b.c")
	require.Equal(t, 0, res.code, res.err)
	resetJwt := field(t, res.out, "passwordResetJwtToken")

	res = run(t, dir, "", "list")
	assert.Contains(t, res.out, "true")

	res = run(t, dir, "", "passwd", "-token", resetJwt)
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Password changed for a@b.c")

	res = run(t, dir, "", "login", "-email", "a@b.c")
	require.Equal(t, 0, res.code, res.err)
}

func TestMain_LoginWrongPassword(t *testing.T) {
	dir := t.TempDir()

	stubPasswords(t, "pw", "pw", "nope")
	require.Equal(t, 0, run(t, dir, "", "create", "-email", "a@b.c").code)

	res := run(t, dir, "", "login", "-email", "a@b.c")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "unauthorized")
}

func TestMain_Delete(t *testing.T) {
	dir := t.TempDir()

	stubPasswords(t, "pw", "pw")
	require.Equal(t, 0, run(t, dir, "", "create", "-email", "a@b.c").code)

	res := run(t, dir, "", "delete", "-email", "a@b.c")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "User deleted")

	res = run(t, dir, "", "delete", "-email", "a@b.c")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "No such user")

	res = run(t, dir, "", "show", "-email", "a@b.c")
	assert.Equal(t, 1, res.code)
}

func TestMain_ResetDB(t *testing.T) {
	dir := t.TempDir()

	stubPasswords(t, "pw", "pw")
	require.Equal(t, 0, run(t, dir, "", "create", "-email", "a@b.c").code)

	res := run(t, dir, "no\n", "reset-db")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Aborted")

	res = run(t, dir, "yes\n", "reset-db")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Database reset")

	res = run(t, dir, "", "list")
	assert.NotContains(t, res.out, "a@b.c")
}

func TestMain_CorruptDatabase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usersDB.json"), []byte("{broken"), 0o600))

	res := run(t, dir, "", "list")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "database unavailable")

	res = run(t, dir, "", "reset-db", "-yes")
	require.Equal(t, 0, res.code, res.err)

	res = run(t, dir, "", "list")
	assert.Equal(t, 0, res.code, res.err)
}

func TestMain_CorruptDatabaseVersionAndHelp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usersDB.json"), []byte("{broken"), 0o600))

	res := run(t, dir, "", "version")
	assert.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Build version:")

	res = run(t, dir, "", "help")
	assert.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Usage: userdb")

	res = run(t, dir, "", "whoami", "-jwt", "x")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "database unavailable")
}

func TestMain_Whoami(t *testing.T) {
	dir := t.TempDir()

	stubPasswords(t, "pw", "pw", "pw")
	res := run(t, dir, "", "create", "-email", "a@b.c")
	require.Equal(t, 0, res.code, res.err)
	firstJwt := field(t, res.out, "authJwtToken")

	res = run(t, dir, "", "whoami", "-jwt", firstJwt)
	require.Equal(t, 0, res.code, res.err)
	var r users.UserRecord
	require.NoError(t, json.Unmarshal([]byte(res.out), &r))
	assert.Equal(t, "a@b.c", r.Email)

	res = run(t, dir, "", "login", "-email", "a@b.c")
	require.Equal(t, 0, res.code, res.err)

	res = run(t, dir, "", "whoami", "-jwt", firstJwt)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "unauthorized")

	res = run(t, dir, "", "whoami", "-jwt", "garbage")
	assert.Equal(t, 1, res.code)
}

func TestMain_UsageErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"show without key", []string{"show"}},
		{"show with two keys", []string{"show", "-id", "1", "-email", "a@b.c"}},
		{"create without email", []string{"create"}},
		{"passwd without token", []string{"passwd"}},
		{"whoami without token", []string{"whoami"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, dir, "", tt.args...)
			assert.Equal(t, 2, res.code)
		})
	}
}

func TestMain_HelpAndVersion(t *testing.T) {
	dir := t.TempDir()

	res := run(t, dir, "")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.out, "Usage: userdb")

	res = run(t, dir, "", "version")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.out, "Build version:")
}

func TestMain_BadConfig(t *testing.T) {
	var out, errw bytes.Buffer
	code := Main(context.Background(), []string{"-c", filepath.Join(t.TempDir(), "missing.json"), "list"},
		strings.NewReader(""), &out, &errw)
	assert.Equal(t, 2, code)
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("hello world\n")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())

	got, err = GetSimpleText(bufio.NewReader(strings.NewReader("lastline")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)
}

func TestGetPassword_Error(t *testing.T) {
	stubPasswords(t)

	var out bytes.Buffer
	_, err := GetPassword("Enter password", &out)
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{}, splitList(""))
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b,,c "))
}
