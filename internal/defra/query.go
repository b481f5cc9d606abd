package defra

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// IDPattern matches IDs that are safe to splice into GraphQL text.
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID rejects IDs that could break out of a quoted GraphQL string.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty ID")
	}
	if len(id) > 500 {
		return fmt.Errorf("ID too long: %d characters", len(id))
	}
	if !IDPattern.MatchString(id) {
		return fmt.Errorf("invalid ID format: contains unsafe characters")
	}
	return nil
}

// QueryBuilder builds a parameterised read query. Filter values travel as
// GraphQL variables, never as query text.
type QueryBuilder struct {
	collection string
	filters    []filterDef
	fields     []string
	order      string
	limit      int
}

type filterDef struct {
	field   string
	varName string
	varType string
	value   any
}

// NewQuery starts a query on collection.
func NewQuery(collection string) *QueryBuilder {
	return &QueryBuilder{collection: collection, fields: []string{"_docID"}}
}

// Filter adds an equality filter.
func (q *QueryBuilder) Filter(field string, value any) *QueryBuilder {
	q.filters = append(q.filters, filterDef{
		field:   field,
		varName: fmt.Sprintf("v%d", len(q.filters)),
		varType: graphQLType(value),
		value:   value,
	})
	return q
}

// Fields replaces the selected fields.
func (q *QueryBuilder) Fields(fields ...string) *QueryBuilder {
	q.fields = fields
	return q
}

// OrderBy orders results by field, "ASC" or "DESC".
func (q *QueryBuilder) OrderBy(field, direction string) *QueryBuilder {
	q.order = fmt.Sprintf("{%s: %s}", field, direction)
	return q
}

// Limit caps the number of results.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Build returns the query text and its variables.
func (q *QueryBuilder) Build() (string, map[string]any) {
	vars := make(map[string]any, len(q.filters))
	var defs, conds []string
	for _, f := range q.filters {
		defs = append(defs, fmt.Sprintf("$%s: %s", f.varName, f.varType))
		conds = append(conds, fmt.Sprintf("%s: {_eq: $%s}", f.field, f.varName))
		vars[f.varName] = f.value
	}

	var args []string
	if len(conds) > 0 {
		args = append(args, "filter: {"+strings.Join(conds, ", ")+"}")
	}
	if q.order != "" {
		args = append(args, "order: "+q.order)
	}
	if q.limit > 0 {
		args = append(args, fmt.Sprintf("limit: %d", q.limit))
	}

	var b strings.Builder
	if len(defs) > 0 {
		b.WriteString("query(" + strings.Join(defs, ", ") + ") ")
	}
	b.WriteString("{ " + q.collection)
	if len(args) > 0 {
		b.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	b.WriteString(" { " + strings.Join(q.fields, " ") + " } }")
	return b.String(), vars
}

// Execute runs the query on client.
func (q *QueryBuilder) Execute(ctx context.Context, client *Client) (*GQLResponse, error) {
	query, vars := q.Build()
	return client.Execute(ctx, query, vars)
}

func graphQLType(v any) string {
	switch v.(type) {
	case int, int32, int64:
		return "Int"
	case float32, float64:
		return "Float"
	case bool:
		return "Boolean"
	default:
		return "String"
	}
}
