// Package query is a small fluent filter builder shared by the device client
// and the API. Filters travel as URL parameters of the form col=op.value and
// are turned into parameterized SQL on the server against an allowlist.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpIs    Op = "is"
	OpNotIs Op = "not.is"
	OpIn    Op = "in"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

var (
	ErrUnknownColumn = errors.New("unknown filter column")
	ErrBadOperator   = errors.New("unsupported filter operator")
	ErrBadValue      = errors.New("invalid filter value")
)

var reserved = map[string]bool{"order": true, "limit": true, "offset": true, "select": true}

type Condition struct {
	Column string
	Op     Op
	Values []string
}

type Order struct {
	Column string
	Desc   bool
}

// Filter is an ordered list of AND-ed conditions plus ordering and paging.
type Filter struct {
	Conditions []Condition
	Orders     []Order
	LimitN     int
	OffsetN    int
}

func New() *Filter {
	return &Filter{}
}

func (f *Filter) add(col string, op Op, vals ...string) *Filter {
	f.Conditions = append(f.Conditions, Condition{Column: col, Op: op, Values: vals})
	return f
}

func (f *Filter) Eq(col string, v any) *Filter  { return f.add(col, OpEq, format(v)) }
func (f *Filter) Neq(col string, v any) *Filter { return f.add(col, OpNeq, format(v)) }
func (f *Filter) Gt(col string, v any) *Filter  { return f.add(col, OpGt, format(v)) }
func (f *Filter) Gte(col string, v any) *Filter { return f.add(col, OpGte, format(v)) }
func (f *Filter) Lt(col string, v any) *Filter  { return f.add(col, OpLt, format(v)) }
func (f *Filter) Lte(col string, v any) *Filter { return f.add(col, OpLte, format(v)) }
func (f *Filter) IsNull(col string) *Filter     { return f.add(col, OpIs, "null") }
func (f *Filter) NotNull(col string) *Filter    { return f.add(col, OpNotIs, "null") }

func (f *Filter) In(col string, vs ...any) *Filter {
	vals := make([]string, 0, len(vs))
	for _, v := range vs {
		vals = append(vals, format(v))
	}
	return f.add(col, OpIn, vals...)
}

func (f *Filter) Order(col string, desc bool) *Filter {
	f.Orders = append(f.Orders, Order{Column: col, Desc: desc})
	return f
}

func (f *Filter) Limit(n int) *Filter {
	f.LimitN = n
	return f
}

func (f *Filter) Offset(n int) *Filter {
	f.OffsetN = n
	return f
}

// Has reports whether a condition on col exists.
func (f *Filter) Has(col string) bool {
	for _, c := range f.Conditions {
		if c.Column == col {
			return true
		}
	}
	return false
}

// Without returns a copy with every condition on col removed.
func (f *Filter) Without(col string) *Filter {
	out := &Filter{Orders: f.Orders, LimitN: f.LimitN, OffsetN: f.OffsetN}
	for _, c := range f.Conditions {
		if c.Column != col {
			out.Conditions = append(out.Conditions, c)
		}
	}
	return out
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Encode renders the filter as URL parameters.
func (f *Filter) Encode() url.Values {
	v := url.Values{}
	for _, c := range f.Conditions {
		switch c.Op {
		case OpIn:
			v.Add(c.Column, "in.("+strings.Join(c.Values, ",")+")")
		default:
			v.Add(c.Column, string(c.Op)+"."+first(c.Values))
		}
	}
	if len(f.Orders) > 0 {
		parts := make([]string, 0, len(f.Orders))
		for _, o := range f.Orders {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if f.LimitN > 0 {
		v.Set("limit", strconv.Itoa(f.LimitN))
	}
	if f.OffsetN > 0 {
		v.Set("offset", strconv.Itoa(f.OffsetN))
	}
	return v
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Column maps a public filter name to a SQL expression. Type is the
// Postgres type values are cast to; empty means text.
type Column struct {
	Expr string
	Type string
}

type Columns map[string]Column

// Parse decodes URL parameters into a filter, rejecting anything not in
// allowed.
func Parse(values url.Values, allowed Columns) (*Filter, error) {
	f := New()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
		}
		for _, raw := range values[key] {
			cond, err := parseCondition(key, raw)
			if err != nil {
				return nil, err
			}
			f.Conditions = append(f.Conditions, cond)
		}
	}

	if order := values.Get("order"); order != "" {
		for _, part := range strings.Split(order, ",") {
			col, dir, _ := strings.Cut(strings.TrimSpace(part), ".")
			if _, ok := allowed[col]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
			}
			switch dir {
			case "", "asc":
				f.Order(col, false)
			case "desc":
				f.Order(col, true)
			default:
				return nil, fmt.Errorf("%w: order direction %q", ErrBadValue, dir)
			}
		}
	}

	var err error
	if f.LimitN, err = parseInt(values.Get("limit"), DefaultLimit); err != nil {
		return nil, err
	}
	if f.LimitN <= 0 || f.LimitN > MaxLimit {
		f.LimitN = DefaultLimit
	}
	if f.OffsetN, err = parseInt(values.Get("offset"), 0); err != nil {
		return nil, err
	}
	if f.OffsetN < 0 {
		f.OffsetN = 0
	}
	return f, nil
}

func parseInt(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadValue, s)
	}
	return n, nil
}

func parseCondition(col, raw string) (Condition, error) {
	if rest, ok := strings.CutPrefix(raw, "not.is."); ok {
		if rest != "null" {
			return Condition{}, fmt.Errorf("%w: %s=%s", ErrBadValue, col, raw)
		}
		return Condition{Column: col, Op: OpNotIs, Values: []string{"null"}}, nil
	}

	opText, val, ok := strings.Cut(raw, ".")
	if !ok {
		return Condition{}, fmt.Errorf("%w: %s=%s", ErrBadOperator, col, raw)
	}
	op := Op(opText)
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return Condition{Column: col, Op: op, Values: []string{val}}, nil
	case OpIs:
		if val != "null" {
			return Condition{}, fmt.Errorf("%w: %s=%s", ErrBadValue, col, raw)
		}
		return Condition{Column: col, Op: OpIs, Values: []string{"null"}}, nil
	case OpIn:
		if !strings.HasPrefix(val, "(") || !strings.HasSuffix(val, ")") {
			return Condition{}, fmt.Errorf("%w: %s=%s", ErrBadValue, col, raw)
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(val, "("), ")")
		if inner == "" {
			return Condition{}, fmt.Errorf("%w: empty in list for %s", ErrBadValue, col)
		}
		parts := strings.Split(inner, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return Condition{Column: col, Op: OpIn, Values: parts}, nil
	default:
		return Condition{}, fmt.Errorf("%w: %s", ErrBadOperator, opText)
	}
}

var sqlOps = map[Op]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

// Where renders the conditions as SQL fragments joined with AND, numbering
// placeholders from argIdx. It returns the fragment, the arguments and the
// next free placeholder index. Conditions on unknown columns are skipped.
func (f *Filter) Where(cols Columns, argIdx int) (string, []any, int) {
	var clauses []string
	var args []any

	for _, c := range f.Conditions {
		col, ok := cols[c.Column]
		if !ok {
			continue
		}
		switch c.Op {
		case OpIs:
			clauses = append(clauses, col.Expr+" IS NULL")
		case OpNotIs:
			clauses = append(clauses, col.Expr+" IS NOT NULL")
		case OpIn:
			clauses = append(clauses, fmt.Sprintf("%s = ANY(%s)", col.Expr, col.placeholder(argIdx, true)))
			args = append(args, c.Values)
			argIdx++
		default:
			clauses = append(clauses, fmt.Sprintf("%s %s %s", col.Expr, sqlOps[c.Op], col.placeholder(argIdx, false)))
			args = append(args, first(c.Values))
			argIdx++
		}
	}
	return strings.Join(clauses, " AND "), args, argIdx
}

func (c Column) placeholder(idx int, array bool) string {
	if array {
		if c.Type == "" {
			return fmt.Sprintf("$%d::text[]", idx)
		}
		return fmt.Sprintf("$%d::text[]::%s[]", idx, c.Type)
	}
	if c.Type == "" {
		return fmt.Sprintf("$%d::text", idx)
	}
	return fmt.Sprintf("$%d::text::%s", idx, c.Type)
}

// OrderBy renders ORDER BY for allowed columns, falling back to def when
// the filter has no ordering.
func (f *Filter) OrderBy(cols Columns, def string) string {
	var parts []string
	for _, o := range f.Orders {
		col, ok := cols[o.Column]
		if !ok {
			continue
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, col.Expr+" "+dir)
	}
	if len(parts) == 0 {
		if def == "" {
			return ""
		}
		return "ORDER BY " + def
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// Page returns the limit and offset with defaults applied.
func (f *Filter) Page() (limit, offset int) {
	limit = f.LimitN
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	offset = f.OffsetN
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
