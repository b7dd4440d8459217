package exchange

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rlch/lineage"
)

// PersonEnv is what an exclude expression sees. Unknown years are zero.
//
//	Living && BirthYear > 1920
//	Family == "Smith" || Sex == "unknown"
type PersonEnv struct {
	ID        string
	Given     string
	Family    string
	Sex       string
	BirthYear int
	DeathYear int
	Living    bool
}

func newPersonEnv(p *lineage.Person) PersonEnv {
	env := PersonEnv{
		ID:     p.ID,
		Given:  p.Name.Given,
		Family: p.Name.Family,
		Sex:    string(p.Sex),
		Living: p.Living(),
	}

	if p.Birth != nil && p.Birth.Date != nil {
		env.BirthYear = p.Birth.Date.Year
	}

	if p.Death != nil && p.Death.Date != nil {
		env.DeathYear = p.Death.Date.Year
	}

	return env
}

// filter is a compiled exclude expression. A nil filter excludes nobody.
type filter struct {
	program *vm.Program
}

func compileFilter(expression string) (*filter, error) {
	if expression == "" {
		return nil, nil //nolint:nilnil // no filter
	}

	program, err := expr.Compile(expression, expr.Env(PersonEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}

	return &filter{program: program}, nil
}

// excludes reports whether p matches the expression.
func (f *filter) excludes(p *lineage.Person) (bool, error) {
	if f == nil {
		return false, nil
	}

	out, err := expr.Run(f.program, newPersonEnv(p))
	if err != nil {
		return false, fmt.Errorf("evaluate exclude filter for %s: %w", p.ID, err)
	}

	excluded, _ := out.(bool)

	return excluded, nil
}
