package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/testutil"
)

const (
	testDataSetArn = "arn:aws:quicksight:us-east-1:111122223333:dataset/sales"
	testRulesArn   = "arn:aws:quicksight:us-east-1:111122223333:dataset/rls-1"
	testUserArn    = "arn:aws:quicksight:us-east-1:111122223333:user/default/alice"
	testGroupArn   = "arn:aws:quicksight:us-east-1:111122223333:group/default/analysts"
)

// cliEnv isolates one test: its own HOME, store and AWS clients.
type cliEnv struct {
	metaDB   string
	registry *testutil.MockClientRegistry
	tty      bool
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"META_DB_PATH", "AWS_ACCOUNT_ID", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"RLSCTL_OUTPUT", "ENV", "QS_ADMIN_PRINCIPAL_ARN", "TLS_CERT_FILE", "TLS_KEY_FILE",
	} {
		t.Setenv(k, "")
	}
	return &cliEnv{
		metaDB:   filepath.Join(home, "rls.sqlite"),
		registry: &testutil.MockClientRegistry{},
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	rt := newRuntime(strings.NewReader(stdin), &out, &errOut)
	rt.clients = e.registry
	rt.isTerminal = func() bool { return e.tty }
	code := run(rt, append([]string{"--meta-db", e.metaDB}, args...))
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	res := e.run(t, "", args...)
	require.Equal(t, 0, res.code, "stdout: %s\nstderr: %s", res.stdout, res.stderr)
	return res.stdout
}

func decodeOut[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func (e *cliEnv) seed(t *testing.T) {
	t.Helper()
	e.mustRun(t, "region", "set", "us-east-1", "--bucket", "rls-bucket", "--glue-database", "rls_db", "--data-source", "athena")
	e.mustRun(t, "dataset", "register", testDataSetArn, "--name", "Sales",
		"--field", "region=STRING", "--field", "dept=string", "--field", "created=DATETIME")
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)

	assert.Contains(t, env.mustRun(t, "version"), "rlsctl dev")
	v := decodeOut[map[string]string](t, env.mustRun(t, "version", "-o", "json"))
	assert.Equal(t, "dev", v["version"])
}

func TestInvalidOutputFormat(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "", "version", "-o", "yaml")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unsupported output format "yaml"`)
}

func TestConfigCommands(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "config", "set-profile", "--name", "prod", "--region", "eu-west-1", "--output", "json")
	env.mustRun(t, "config", "use-profile", "prod")

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.CurrentProfile)
	assert.Equal(t, Profile{MetaDB: env.metaDB, Region: "eu-west-1", Output: "json"}, cfg.Profiles["prod"])

	// The profile's output format now applies.
	shown := decodeOut[UserConfig](t, env.mustRun(t, "config", "show"))
	assert.Equal(t, "prod", shown.CurrentProfile)

	res := env.run(t, "", "config", "use-profile", "staging")
	assert.Equal(t, 1, res.code)

	res = env.run(t, "", "config", "set-profile", "--name", "x", "--output", "xml")
	assert.Equal(t, 1, res.code)
}

func TestMetaDBPrecedence(t *testing.T) {
	env := newCLIEnv(t)
	home := filepath.Dir(env.metaDB)
	profileDB := filepath.Join(home, "profile.sqlite")
	envDB := filepath.Join(home, "env.sqlite")

	cfg := emptyUserConfig()
	cfg.Profiles["default"] = Profile{MetaDB: profileDB}
	require.NoError(t, SaveUserConfig(cfg))

	migrate := func(args ...string) string {
		var out, errOut bytes.Buffer
		rt := newRuntime(strings.NewReader(""), &out, &errOut)
		rt.clients = env.registry
		require.Equal(t, 0, run(rt, args), errOut.String())
		return out.String()
	}

	assert.Contains(t, migrate("migrate"), profileDB)

	t.Setenv("META_DB_PATH", envDB)
	assert.Contains(t, migrate("migrate"), envDB)

	assert.Contains(t, migrate("--meta-db", env.metaDB, "migrate"), env.metaDB)
}

func TestRegionsAndDatasets(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t)

	regions := decodeOut[[]api.Region](t, env.mustRun(t, "region", "list", "-o", "json"))
	require.Len(t, regions, 1)
	assert.Equal(t, "rls-bucket", regions[0].BucketName)

	table := env.mustRun(t, "region", "list")
	assert.Contains(t, table, "REGION")
	assert.Contains(t, table, "us-east-1")

	list := decodeOut[api.DatasetList](t, env.mustRun(t, "dataset", "list", "-o", "json", "--region", "us-east-1"))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Sales", list.Data[0].Name)

	ds := decodeOut[api.Dataset](t, env.mustRun(t, "dataset", "get", testDataSetArn, "-o", "json"))
	assert.Equal(t, domain.FieldTypes{
		{Name: "region", Type: "STRING"}, {Name: "dept", Type: "STRING"}, {Name: "created", Type: "DATETIME"},
	}, ds.FieldTypes)

	t.Run("unmanaged region", func(t *testing.T) {
		res := env.run(t, "", "dataset", "register", "arn:aws:quicksight:ap-south-1:111122223333:dataset/x")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "not managed")
	})

	t.Run("missing dataset as json", func(t *testing.T) {
		res := env.run(t, "", "dataset", "get", "arn:aws:quicksight:us-east-1:111122223333:dataset/nope", "-o", "json")
		assert.Equal(t, 1, res.code)
		body := decodeOut[map[string]any](t, res.stdout)
		assert.Equal(t, float64(http.StatusNotFound), body["status"])
		assert.Equal(t, "NotFoundError", body["errorType"])
	})
}

func TestPermissionsAndCSV(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t)

	aliceID := strings.TrimSpace(env.mustRun(t, "permission", "add", testDataSetArn,
		"--principal", testUserArn, "--field", "region", "--values", "US"))
	require.NotEmpty(t, aliceID)
	env.mustRun(t, "permission", "add", testDataSetArn, "--principal", testGroupArn)
	env.mustRun(t, "permission", "update", aliceID, "--values", "US,EU")

	perms := decodeOut[[]api.Permission](t, env.mustRun(t, "perm", "list", testDataSetArn, "-o", "json"))
	assert.Len(t, perms, 2)

	lines := strings.Split(strings.TrimSuffix(env.mustRun(t, "csv", "export", testDataSetArn), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "UserARN,GroupARN,region", lines[0])
	assert.Equal(t, ","+testGroupArn+",", lines[1])
	assert.Equal(t, testUserArn+",,\"US,EU\"", lines[2])

	csv := "UserARN,GroupARN,region,dept\n" + testUserArn + ",,EU,Sales\n"

	res := env.run(t, csv, "csv", "import", testDataSetArn, "-")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Dry run: 2 permissions parsed (dialect arn)")

	res = env.run(t, csv, "csv", "import", testDataSetArn, "-", "--apply", "-o", "json")
	require.Equal(t, 0, res.code, res.stderr)
	imported := decodeOut[api.ImportResponse](t, res.stdout)
	assert.True(t, imported.Applied)
	assert.Equal(t, 2, imported.Stored)

	perms = decodeOut[[]api.Permission](t, env.mustRun(t, "permission", "list", testDataSetArn, "-o", "json"))
	require.Len(t, perms, 2)
	for _, p := range perms {
		assert.Equal(t, testUserArn, p.UserGroupArn)
	}

	env.mustRun(t, "permission", "rm", perms[0].ID)
	perms = decodeOut[[]api.Permission](t, env.mustRun(t, "permission", "list", testDataSetArn, "-o", "json"))
	assert.Len(t, perms, 1)

	t.Run("unknown field", func(t *testing.T) {
		res := env.run(t, "", "permission", "add", testDataSetArn, "--principal", testUserArn, "--field", "salary", "--values", "1")
		assert.Equal(t, 1, res.code)
	})
}

func TestVisibilityAndHistory(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t)

	res := env.run(t, "", "visibility", "set", testDataSetArn, "--grant", testGroupArn+"=viewer", "-o", "json")
	require.Equal(t, 0, res.code, res.stderr)
	saved := decodeOut[api.VisibilityRequest](t, res.stdout)
	assert.Equal(t, []api.VisibilityGrant{{PrincipalArn: testGroupArn, Level: domain.VisibilityViewer}}, saved.Grants)

	listed := decodeOut[api.VisibilityRequest](t, env.mustRun(t, "visibility", "list", testDataSetArn, "-o", "json"))
	assert.Equal(t, saved, listed)

	res = env.run(t, "", "visibility", "set", testDataSetArn, "--grant", testGroupArn+"=ADMIN")
	assert.Equal(t, 1, res.code)

	assert.Equal(t, "[]\n", env.mustRun(t, "history", testDataSetArn, "-o", "json"))
}

func TestPublishFailure(t *testing.T) {
	env := newCLIEnv(t)
	env.registry.Clients = &domain.CloudClients{
		Region: "us-east-1",
		Storage: &testutil.MockObjectStore{
			HeadBucketFn: func(_ context.Context, _ string) error {
				return &domain.ServiceError{Service: "s3", Op: "HeadBucket", Code: "NoSuchBucket", Status: http.StatusNotFound, Message: "gone"}
			},
		},
	}
	env.seed(t)

	t.Run("table output streams progress", func(t *testing.T) {
		res := env.run(t, "", "publish", testDataSetArn)
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "ERROR")
		assert.Contains(t, res.stderr, "Error: failed at ")
	})

	t.Run("json output carries the outcome", func(t *testing.T) {
		res := env.run(t, "", "publish", testDataSetArn, "-o", "json")
		assert.Equal(t, 1, res.code)
		dec := json.NewDecoder(strings.NewReader(res.stdout))
		var out api.PipelineResponse
		require.NoError(t, dec.Decode(&out))
		assert.Equal(t, http.StatusNotFound, out.Status)
		assert.Equal(t, "NoSuchBucket", out.ErrorType)
		assert.NotEmpty(t, out.Log)

		var failure map[string]any
		require.NoError(t, dec.Decode(&failure))
		assert.Equal(t, "NoSuchBucket", failure["errorType"])
	})
}

func TestRollbackNeedsVersion(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "", "rollback", testDataSetArn, "--version", "0")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "positive integer")
}

func TestDeleteConfirmation(t *testing.T) {
	// registry has no clients: any cloud call panics.
	env := newCLIEnv(t)

	t.Run("refuses without a terminal", func(t *testing.T) {
		res := env.run(t, "", "delete", testRulesArn)
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "pass --yes")
	})

	t.Run("declined", func(t *testing.T) {
		env.tty = true
		defer func() { env.tty = false }()
		res := env.run(t, "n\n", "delete", testRulesArn)
		assert.Equal(t, 0, res.code)
		assert.Contains(t, res.stderr, "Aborted")
	})

	t.Run("unmanaged region fails validation", func(t *testing.T) {
		res := env.run(t, "", "delete", testRulesArn, "--yes", "-o", "json")
		assert.Equal(t, 1, res.code)
		var out api.PipelineResponse
		require.NoError(t, json.NewDecoder(strings.NewReader(res.stdout)).Decode(&out), res.stdout)
		assert.Equal(t, http.StatusBadRequest, out.Status)
		assert.Equal(t, "validate", out.FailedAt)
	})
}

func TestParseFieldFlags(t *testing.T) {
	ft, err := parseFieldFlags([]string{"region=string", " amount = DECIMAL "})
	require.NoError(t, err)
	assert.Equal(t, domain.FieldTypes{{Name: "region", Type: "STRING"}, {Name: "amount", Type: "DECIMAL"}}, ft)

	for _, bad := range []string{"region", "=STRING", "region="} {
		_, err := parseFieldFlags([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseGrantFlags(t *testing.T) {
	grants, err := parseGrantFlags(testDataSetArn, []string{testUserArn + "=owner"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, testUserArn, grants[0].PrincipalArn)
	assert.Equal(t, domain.VisibilityOwner, grants[0].Level)
	assert.Equal(t, testDataSetArn, grants[0].DataSetArn)

	_, err = parseGrantFlags(testDataSetArn, []string{"=OWNER"})
	assert.Error(t, err)
}
