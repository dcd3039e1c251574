package rlscsv

import (
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
)

func parseString(t *testing.T, text string, opts ParseOptions) *ParseResult {
	t.Helper()
	res, err := Parse(strings.NewReader(text), opts)
	require.NoError(t, err)
	return res
}

func TestParse_DetectsDialect(t *testing.T) {
	tests := []struct {
		header string
		want   Dialect
	}{
		{"UserARN,GroupARN,region", DialectARN},
		{"userarn,grouparn,region", DialectARN},
		{"GroupARN,region", DialectARN},
		{"UserArn,region", DialectARN},
		{"GroupName,region", DialectGroupName},
		{"group,region", DialectGroupName},
		{"GROUP,region", DialectGroupName},
		{"UserName,region", DialectUserName},
		{"user,region", DialectUserName},
		{"USERNAME,region", DialectUserName},
		{"\ufeffUserARN,GroupARN,region", DialectARN},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			res := parseString(t, tt.header+"\n", ParseOptions{})
			assert.Equal(t, tt.want, res.Dialect)
			assert.Equal(t, []string{"region"}, res.Fields)
		})
	}
}

func TestParse_UnknownHeaderIsHardError(t *testing.T) {
	res, err := Parse(strings.NewReader("Email,region\nalice@example.com,US\n"), ParseOptions{})
	assert.Nil(t, res)
	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)

	_, err = Parse(strings.NewReader(""), ParseOptions{})
	assert.ErrorAs(t, err, &valErr)
}

func TestParse_ARNDialect(t *testing.T) {
	text := "UserARN,GroupARN,region,dept\n" +
		userA + ",,US,\n" +
		"," + groupG + ",EU,HR\n"
	res := parseString(t, text, ParseOptions{DataSetArn: "arn:ds"})

	require.Len(t, res.Permissions, 4)
	assert.Empty(t, res.Diagnostics)

	a := res.Permissions[2:]
	if res.Permissions[0].UserGroupArn == userA {
		a = res.Permissions[:2]
	}
	assert.Equal(t, "A", a[0].PrincipalName)
	assert.Equal(t, domain.PrincipalUser, a[0].PrincipalKind)
	assert.True(t, a[0].Resolved)
	assert.Equal(t, "region", a[0].Field)
	assert.Equal(t, "US", a[0].RLSValues)
	assert.Equal(t, "dept", a[1].Field)
	assert.Equal(t, domain.Wildcard, a[1].RLSValues, "empty cell means all values")
	assert.Equal(t, "arn:ds", a[0].DataSetArn)
	assert.Equal(t, domain.PermissionPending, a[0].Status)
}

func TestParse_ReadErrorAfterHeaderFails(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader("UserARN,GroupARN,region\n"+userA+",,US\n"),
		iotest.ErrReader(boom),
	)

	res, err := Parse(r, ParseOptions{})

	require.ErrorIs(t, err, boom)
	assert.Nil(t, res)
}

func TestParse_RowProblemsAreWarnings(t *testing.T) {
	text := "UserARN,GroupARN,region\n" +
		",,US\n" +
		userA + "," + groupG + ",US\n" +
		userB + "\n" +
		userC + ",,EU\n"
	res := parseString(t, text, ParseOptions{})

	require.Len(t, res.Permissions, 1)
	assert.Equal(t, userC, res.Permissions[0].UserGroupArn)
	require.Len(t, res.Diagnostics, 3)
	assert.Equal(t, 2, res.Diagnostics[0].Line)
	assert.Contains(t, res.Diagnostics[0].Message, "neither")
	assert.Contains(t, res.Diagnostics[1].Message, "both")
	assert.Contains(t, res.Diagnostics[2].Message, "columns")
	assert.Equal(t, 3, res.Warnings())
}

func TestParse_ResolvesNamesCaseInsensitively(t *testing.T) {
	users := []domain.Principal{{Arn: userA, Name: "Alice", Kind: domain.PrincipalUser}}
	res := parseString(t, "UserName,region\nalice,US\nbob,EU\n", ParseOptions{Users: users})

	require.Len(t, res.Permissions, 2)
	byName := map[string]ParsedPermission{}
	for _, p := range res.Permissions {
		byName[p.PrincipalName] = p
	}
	assert.True(t, byName["alice"].Resolved)
	assert.Equal(t, userA, byName["alice"].UserGroupArn)
	assert.False(t, byName["bob"].Resolved)
	assert.Empty(t, byName["bob"].UserGroupArn)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, `"bob" not found`)

	assert.Len(t, res.Resolved(), 1)
}

func TestParse_GroupNameDialect(t *testing.T) {
	groups := []domain.Principal{{Arn: groupG, Name: "G", Kind: domain.PrincipalGroup}}
	res := parseString(t, "Group,region\ng,US\n", ParseOptions{Groups: groups})
	require.Len(t, res.Permissions, 1)
	assert.Equal(t, groupG, res.Permissions[0].UserGroupArn)
	assert.Equal(t, domain.PrincipalGroup, res.Permissions[0].PrincipalKind)
}

func TestParse_QuotedCellWithCommas(t *testing.T) {
	res := parseString(t, "UserARN,GroupARN,country\n"+userA+`,,"US,CA,MX"`+"\n", ParseOptions{})
	require.Len(t, res.Permissions, 1)
	assert.Equal(t, "US,CA,MX", res.Permissions[0].RLSValues)
	assert.Equal(t, []string{"US", "CA", "MX"}, strings.Split(res.Permissions[0].RLSValues, ","))
}

func TestParse_AllEmptyCellsCollapseToWildcard(t *testing.T) {
	res := parseString(t, "UserARN,GroupARN,region,dept\n"+userA+",,,\n", ParseOptions{})
	require.Len(t, res.Permissions, 1)
	assert.True(t, res.Permissions[0].IsWildcard())
}

func TestParse_WarnsOnDateFields(t *testing.T) {
	ft := domain.FieldTypes{{Name: "signup_date", Type: "DATE"}, {Name: "country", Type: "STRING"}}
	res := parseString(t, "UserARN,GroupARN,signup_date,country\n"+userA+",,2024-01-01,US\n", ParseOptions{FieldTypes: ft})
	assert.Len(t, res.Permissions, 2)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, "signup_date")
}

type triple struct{ principal, field, values string }

func triples(perms []domain.Permission) []triple {
	out := make([]triple, len(perms))
	for i, p := range perms {
		out[i] = triple{p.UserGroupArn, p.Field, p.RLSValues}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].principal != out[j].principal {
			return out[i].principal < out[j].principal
		}
		return out[i].field < out[j].field
	})
	return out
}

func TestRoundTrip(t *testing.T) {
	perms := []domain.Permission{
		perm(userA, "region", "US"),
		perm(userA, "dept", "HR"),
		perm(groupG, "region", "*"),
		perm(groupG, "dept", "*"),
		perm(userC, "region", "US,CA"),
		perm(userC, "dept", "*"),
		perm(userB, "*", "*"),
	}
	doc, err := Serialize(perms, regionDept)
	require.NoError(t, err)

	res := parseString(t, doc.Text, ParseOptions{FieldTypes: regionDept})
	require.Empty(t, res.Diagnostics)

	assert.Equal(t, triples(Consolidate(perms, doc.Fields)), triples(res.Resolved()))
}

func TestConsolidate_Idempotent(t *testing.T) {
	perms := []domain.Permission{
		perm(userB, "region", "*"),
		perm(userB, "dept", "*"),
		perm(userA, "region", "US"),
	}
	fields := []string{"region", "dept"}
	once := Consolidate(perms, fields)
	twice := Consolidate(once, fields)
	assert.Equal(t, triples(once), triples(twice))

	doc, err := Serialize(once, regionDept)
	require.NoError(t, err)
	res := parseString(t, doc.Text, ParseOptions{})
	assert.Equal(t, triples(Consolidate(once, doc.Fields)), triples(res.Resolved()))
}
