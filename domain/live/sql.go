package live

import (
	"fmt"
	"regexp"
	"strings"
)

// SqlValidator restricts free-SQL tools to read-only statements. Every check
// runs twice: once on a copy with comments removed and string literal
// contents emptied (so the statement structure is checked without them),
// and once on the raw, unstripped input (so keywords inside literals or
// comments, such as a comment-hidden statement like
// "SELECT 1 --;\nDELETE FROM users", are still rejected).
type SqlValidator struct{}

// NewSqlValidator constructs a SqlValidator. It holds no state; all rules
// are fixed package-level constants.
func NewSqlValidator() SqlValidator { return SqlValidator{} }

var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE", "CREATE", "GRANT", "REVOKE",
}

var bodyForbiddenKeywords = []string{"UNION", "INTO", "COPY"}

var dangerousFunctions = []string{
	"pg_sleep", "lo_import", "lo_export", "pg_read_file", "pg_write_file", "load_file", "sleep", "benchmark",
}

var allowedLeadingTokens = map[string]struct{}{
	"SELECT": {}, "WITH": {}, "EXPLAIN": {},
}

var lineCommentRE = regexp.MustCompile(`--[^\n]*`)
var blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)
var singleQuotedRE = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)
var doubleQuotedRE = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
var writableCTE = regexp.MustCompile(`(?i)WITH\s+\w+\s+AS\s*\(\s*(DELETE|UPDATE|INSERT)`)
var wordRE = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Validate reports an error if sql is not a safe read-only statement.
func (SqlValidator) Validate(sql string) error {
	stripped := stripCommentsAndLiterals(sql)

	if err := validateStatement(stripped); err != nil {
		return err
	}
	if err := validateStatement(sql); err != nil {
		return err
	}
	return nil
}

func validateStatement(s string) error {
	if countStatements(s) > 1 {
		return fmt.Errorf("Rejected: multiple statements are not allowed")
	}

	trimmed := strings.TrimSpace(s)
	firstWord := firstToken(trimmed)
	if _, ok := allowedLeadingTokens[strings.ToUpper(firstWord)]; !ok {
		return fmt.Errorf("Rejected: only SELECT, WITH, or EXPLAIN statements are allowed")
	}

	upper := strings.ToUpper(s)
	for _, kw := range forbiddenKeywords {
		if containsWord(upper, kw) {
			return fmt.Errorf("Rejected: forbidden keyword %s", kw)
		}
	}
	for _, kw := range bodyForbiddenKeywords {
		if containsWord(upper, kw) {
			return fmt.Errorf("Rejected: forbidden keyword %s", kw)
		}
	}
	if writableCTE.MatchString(s) {
		return fmt.Errorf("Rejected: writable CTE is not allowed")
	}
	lowerWords := wordRE.FindAllString(strings.ToLower(s), -1)
	wordSet := make(map[string]struct{}, len(lowerWords))
	for _, w := range lowerWords {
		wordSet[w] = struct{}{}
	}
	for _, fn := range dangerousFunctions {
		if _, ok := wordSet[fn]; ok {
			return fmt.Errorf("Rejected: dangerous function %s", fn)
		}
	}
	return nil
}

// countStatements counts semicolon-separated statements, ignoring any
// trailing semicolons and empty segments between semicolons.
func countStatements(s string) int {
	trimmed := strings.TrimRight(strings.TrimSpace(s), ";")
	if trimmed == "" {
		return 0
	}
	parts := strings.Split(trimmed, ";")
	count := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			count++
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

func firstToken(s string) string {
	loc := wordRE.FindStringIndex(s)
	if loc == nil {
		return ""
	}
	return s[loc[0]:loc[1]]
}

func containsWord(upper, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(upper)
}

func stripCommentsAndLiterals(s string) string {
	s = blockCommentRE.ReplaceAllString(s, " ")
	s = lineCommentRE.ReplaceAllString(s, "")
	s = singleQuotedRE.ReplaceAllString(s, "''")
	s = doubleQuotedRE.ReplaceAllString(s, `""`)
	return s
}
