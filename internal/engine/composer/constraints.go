package composer

import (
	"slices"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/devshell/internal/core/domain"
)

// CheckConstraints verifies resolved package versions against semver ranges.
// Constraints naming packages outside the resolved set are ignored.
// All violations are reported together in one *domain.ConstraintViolationError.
func CheckConstraints(resolved *domain.ResolvedEnvironment, constraints map[string]string) error {
	if len(constraints) == 0 {
		return nil
	}

	var violations []domain.ConstraintViolation
	for _, p := range resolved.Packages {
		raw, ok := constraints[p.ID.String()]
		if !ok {
			continue
		}
		if v, violated := check(p, raw); violated {
			violations = append(violations, v)
		}
	}

	if len(violations) > 0 {
		return &domain.ConstraintViolationError{Violations: violations}
	}
	return nil
}

func check(p domain.PackageDef, raw string) (domain.ConstraintViolation, bool) {
	violation := domain.ConstraintViolation{ID: p.ID, Version: p.Version, Constraint: raw}

	c, err := semver.NewConstraint(raw)
	if err != nil {
		violation.Reason = "invalid constraint"
		return violation, true
	}

	v, err := semver.NewVersion(p.Version)
	if err != nil {
		violation.Reason = "version is not semver"
		return violation, true
	}

	if ok, errs := c.Validate(v); !ok {
		if len(errs) > 0 {
			violation.Reason = errs[0].Error()
		}
		return violation, true
	}
	return violation, false
}

// unconstrained returns the constraint keys that name no resolved package, sorted.
func unconstrained(resolved *domain.ResolvedEnvironment, constraints map[string]string) []string {
	present := make(map[string]struct{}, len(resolved.Packages))
	for _, p := range resolved.Packages {
		present[p.ID.String()] = struct{}{}
	}

	var out []string
	for name := range constraints {
		if _, ok := present[name]; !ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
