package domain

import (
	"go.trai.ch/zerr"
)

// OverlayOpKind names a registry transformation.
type OverlayOpKind string

const (
	// OpAdd inserts a new package. The id must not exist yet.
	OpAdd OverlayOpKind = "add"
	// OpSet inserts or fully replaces a package.
	OpSet OverlayOpKind = "set"
	// OpReplace fully replaces an existing package.
	OpReplace OverlayOpKind = "replace"
	// OpPatch merges a version and attributes into an existing package.
	OpPatch OverlayOpKind = "patch"
	// OpAlias registers a copy of an existing package under a new id.
	OpAlias OverlayOpKind = "alias"
	// OpRemove deletes an existing package.
	OpRemove OverlayOpKind = "remove"
)

// OverlayOp is one add/replace/remove style step of an overlay.
type OverlayOp struct {
	Kind    OverlayOpKind
	Package PackageID
	Version string
	Attrs   map[string]string
	// From is the source package of an alias.
	From PackageID
}

// Overlay is an ordered, named transformation over a Registry.
type Overlay struct {
	Name string
	Ops  []OverlayOp
}

// Apply evaluates the overlay against in and returns the resulting registry.
// Ops run in order, each observing the result of the previous one. in is never modified.
// On failure the returned error is an *OverlayEvaluationError with Position 0;
// pipelines rewrite the position.
func (o Overlay) Apply(in *Registry) (*Registry, error) {
	b := in.Edit()
	for i, op := range o.Ops {
		if err := op.apply(b); err != nil {
			return nil, &OverlayEvaluationError{Overlay: o.Name, Op: i, Cause: err}
		}
	}
	return b.Build(), nil
}

func (op OverlayOp) apply(b *RegistryBuilder) error {
	if op.Package.IsZero() {
		return zerr.With(ErrEmptyPackageID, "op", string(op.Kind))
	}

	switch op.Kind {
	case OpAdd:
		return b.Add(op.def())
	case OpSet:
		return b.Set(op.def())
	case OpReplace:
		if _, ok := b.Lookup(op.Package); !ok {
			return op.missing(op.Package)
		}
		return b.Set(op.def())
	case OpPatch:
		current, ok := b.Lookup(op.Package)
		if !ok {
			return op.missing(op.Package)
		}
		return b.Set(current.Merge(op.Version, op.Attrs))
	case OpAlias:
		if op.From.IsZero() {
			return zerr.With(zerr.With(ErrInvalidOverlayOp, "op", string(op.Kind)), "reason", "alias requires 'from'")
		}
		source, ok := b.Lookup(op.From)
		if !ok {
			return op.missing(op.From)
		}
		return b.Set(source.WithID(op.Package))
	case OpRemove:
		if !b.Delete(op.Package) {
			return op.missing(op.Package)
		}
		return nil
	default:
		return zerr.With(zerr.With(ErrInvalidOverlayOp, "op", string(op.Kind)), "package", op.Package.String())
	}
}

func (op OverlayOp) def() PackageDef {
	return PackageDef{ID: op.Package, Version: op.Version, Attrs: op.Attrs}.Clone()
}

func (op OverlayOp) missing(id PackageID) error {
	return zerr.With(zerr.With(ErrOverlayTargetMissing, "op", string(op.Kind)), "package", id.String())
}
