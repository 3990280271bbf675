package transform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
)

// Built-in function names
const (
	FuncDateFormat       = "date_format"
	FuncConcat           = "concat"
	FuncSplit            = "split"
	FuncUppercase        = "uppercase"
	FuncLowercase        = "lowercase"
	FuncTitleCase        = "title_case"
	FuncTrim             = "trim"
	FuncReplace          = "replace"
	FuncRound            = "round"
	FuncMultiply         = "multiply"
	FuncLookupReference  = "lookup_reference"
	FuncLookupNaturalKey = "lookup_natural_key"
)

func registerBuiltins(r *Registry) {
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncDateFormat, Arity: 2},
		Apply: dateFormat,
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncConcat, Arity: 1, Variadic: true},
		Apply: concat,
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncSplit, Arity: 2},
		Apply: split,
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncUppercase, Arity: 0},
		Apply: func(_ context.Context, _ []string, value any, _ mapping.LookupResolver) (any, error) {
			s, err := asString(value)
			if err != nil {
				return nil, err
			}
			return strings.ToUpper(s), nil
		},
	})
	r.register(Function{
		Info: mapping.FunctionInfo{Name: FuncLowercase, Arity: 0},
		Apply: func(_ context.Context, _ []string, value any, _ mapping.LookupResolver) (any, error) {
			s, err := asString(value)
			if err != nil {
				return nil, err
			}
			return strings.ToLower(s), nil
		},
	})
	r.register(Function{
		Info: mapping.FunctionInfo{Name: FuncTitleCase, Arity: 0},
		Apply: func(_ context.Context, _ []string, value any, _ mapping.LookupResolver) (any, error) {
			s, err := asString(value)
			if err != nil {
				return nil, err
			}
			return cases.Title(language.Und).String(s), nil
		},
	})
	r.register(Function{
		Info: mapping.FunctionInfo{Name: FuncTrim, Arity: 0},
		Apply: func(_ context.Context, _ []string, value any, _ mapping.LookupResolver) (any, error) {
			s, err := asString(value)
			if err != nil {
				return nil, err
			}
			return strings.TrimSpace(s), nil
		},
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncReplace, Arity: 2},
		Apply: replace,
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncRound, Arity: 1},
		Apply: round,
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncMultiply, Arity: 1},
		Apply: multiply,
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncLookupReference, Arity: 1, IsLookup: true},
		Apply: lookupReference,
	})
	r.register(Function{
		Info:  mapping.FunctionInfo{Name: FuncLookupNaturalKey, Arity: 2, IsLookup: true},
		Apply: lookupNaturalKey,
	})
}

// dateFormat reparses the value from args[0] layout and renders it in
// args[1] layout. Layouts use Go reference time notation.
func dateFormat(_ context.Context, args []string, value any, _ mapping.LookupResolver) (any, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(args[0], s)
	if err != nil {
		return nil, fmt.Errorf("transform: cannot parse %q with layout %q: %w", s, args[0], err)
	}
	return t.Format(args[1]), nil
}

// concat appends the literal arguments to the string value
func concat(_ context.Context, args []string, value any, _ mapping.LookupResolver) (any, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(s)
	for _, a := range args {
		b.WriteString(a)
	}
	return b.String(), nil
}

// split splits on args[0] and selects the element at index args[1]
func split(_ context.Context, args []string, value any, _ mapping.LookupResolver) (any, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("transform: split index %q is not a number", args[1])
	}
	parts := strings.Split(s, args[0])
	if idx < 0 || idx >= len(parts) {
		return nil, fmt.Errorf("transform: split index %d out of range for %d part(s)", idx, len(parts))
	}
	return parts[idx], nil
}

// replace substitutes every occurrence of args[0] with args[1]
func replace(_ context.Context, args []string, value any, _ mapping.LookupResolver) (any, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(s, args[0], args[1]), nil
}

// round rounds a numeric value to args[0] decimal places
func round(_ context.Context, args []string, value any, _ mapping.LookupResolver) (any, error) {
	d, err := asDecimal(value)
	if err != nil {
		return nil, err
	}
	places, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("transform: round places %q is not a number", args[0])
	}
	return d.Round(int32(places)).String(), nil
}

// multiply scales a numeric value by the decimal factor args[0]
func multiply(_ context.Context, args []string, value any, _ mapping.LookupResolver) (any, error) {
	d, err := asDecimal(value)
	if err != nil {
		return nil, err
	}
	factor, err := decimal.NewFromString(args[0])
	if err != nil {
		return nil, fmt.Errorf("transform: multiply factor %q is not a number", args[0])
	}
	return d.Mul(factor).String(), nil
}

// lookupReference resolves the target id of the foreign entity whose
// source-platform id is the field value. args[0] is the entity type.
func lookupReference(ctx context.Context, args []string, value any, resolver mapping.LookupResolver) (any, error) {
	if resolver == nil {
		return nil, fmt.Errorf("transform: no lookup resolver available")
	}
	sourceID, err := asString(value)
	if err != nil {
		return nil, err
	}
	return resolver.ResolveReference(ctx, sync.EntityType(args[0]), sourceID)
}

// lookupNaturalKey resolves the target id of the foreign entity identified
// by a natural key. args[0] is the entity type, args[1] the key field.
func lookupNaturalKey(ctx context.Context, args []string, value any, resolver mapping.LookupResolver) (any, error) {
	if resolver == nil {
		return nil, fmt.Errorf("transform: no lookup resolver available")
	}
	keyValue, err := asString(value)
	if err != nil {
		return nil, err
	}
	return resolver.ResolveNaturalKey(ctx, sync.EntityType(args[0]), args[1], keyValue)
}

// ---------------------------------------------------------------------------
// conversions
// ---------------------------------------------------------------------------

func asString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", fmt.Errorf("transform: value is null")
	default:
		return "", fmt.Errorf("transform: cannot convert %T to string", value)
	}
}

func asDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("transform: %q is not a number", v)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Zero, fmt.Errorf("transform: cannot convert %T to decimal", value)
	}
}
