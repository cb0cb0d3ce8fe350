package live

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSqlValidatorAllowsSelect(t *testing.T) {
	v := NewSqlValidator()
	assert.NoError(t, v.Validate("SELECT id, name FROM users WHERE id = 1"))
	assert.NoError(t, v.Validate("WITH recent AS (SELECT * FROM users) SELECT * FROM recent"))
	assert.NoError(t, v.Validate("EXPLAIN SELECT * FROM users"))
}

func TestSqlValidatorRejectsMultipleStatements(t *testing.T) {
	v := NewSqlValidator()
	err := v.Validate("SELECT 1; DROP TABLE users")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "multiple statements")
}

func TestSqlValidatorRejectsCommentHiddenDML(t *testing.T) {
	v := NewSqlValidator()
	err := v.Validate("SELECT 1 --;\nDELETE FROM users")
	assert.Error(t, err)
}

func TestSqlValidatorRejectsWritableCTE(t *testing.T) {
	v := NewSqlValidator()
	err := v.Validate("WITH deleted AS (DELETE FROM users RETURNING *) SELECT * FROM deleted")
	assert.Error(t, err)
}

func TestSqlValidatorRejectsDangerousFunctions(t *testing.T) {
	v := NewSqlValidator()
	err := v.Validate("SELECT pg_sleep(10)")
	assert.Error(t, err)
}

func TestSqlValidatorForbiddenKeywordEveryCasing(t *testing.T) {
	v := NewSqlValidator()
	for _, w := range forbiddenKeywords {
		for _, casing := range []string{strings.ToLower(w), strings.ToUpper(w), strings.Title(strings.ToLower(w))} {
			stmt := casing + " FROM t"
			assert.Errorf(t, v.Validate(stmt), "expected rejection for %q", stmt)
		}
	}
}

func TestSqlValidatorRejectsNonSelectLead(t *testing.T) {
	v := NewSqlValidator()
	err := v.Validate("CALL do_something()")
	assert.Error(t, err)
}
