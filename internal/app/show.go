package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/devshell/internal/ui/output"
	"go.trai.ch/devshell/internal/ui/style"
)

// ShowOptions configuration for the Show method.
type ShowOptions struct {
	// Platform defaults to the current platform.
	Platform domain.Platform
	Offline  bool
}

// Show prints a human-readable summary of the environment for one platform.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	platform := opts.Platform
	if platform == "" {
		platform = domain.CurrentPlatform()
	}

	ctx, span := a.tracer.Start(ctx, "devshell show", ports.WithAttribute("devshell.platform", platform.String()))
	defer span.End()

	m, err := a.load()
	if err != nil {
		span.RecordError(err)
		return err
	}

	desc, err := a.descriptor(ctx, m, platform, opts.Offline)
	if err != nil {
		span.RecordError(err)
		return err
	}

	_, err = io.WriteString(a.stdout, renderSummary(a.stdout, desc))
	return err
}

func renderSummary(w io.Writer, desc domain.ActivationDescriptor) string {
	r := output.Renderer(w)
	heading := style.Heading.Renderer(r)
	label := style.Label.Renderer(r)
	name := style.Name.Renderer(r)
	version := style.Version.Renderer(r)
	muted := style.Muted.Renderer(r)

	defs := make(map[domain.PackageID]domain.PackageDef, len(desc.Packages))
	for _, p := range desc.Packages {
		defs[p.ID] = p
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", heading.Render("devshell"), name.Render(desc.Platform.String()))
	fmt.Fprintf(&b, "%s %s\n", label.Render("registry"), desc.RegistryDigest)
	fmt.Fprintf(&b, "%s %d\n", label.Render("packages"), len(desc.Packages))

	section := func(title string, ids []domain.PackageID) {
		fmt.Fprintf(&b, "\n%s\n", heading.Render(title))
		if len(ids) == 0 {
			fmt.Fprintf(&b, "  %s\n", muted.Render("none"))
			return
		}
		for _, id := range ids {
			def := defs[id]
			v := muted.Render("unversioned")
			if def.Version != "" {
				v = version.Render(def.Version)
			}
			fmt.Fprintf(&b, "  %s %s %s\n", style.Dot, name.Render(id.String()), v)
			if summary := def.Attr(domain.AttrSummary); summary != "" {
				fmt.Fprintf(&b, "    %s\n", muted.Render(summary))
			}
		}
	}
	section("nativeBuildInputs", desc.NativeBuildInputs)
	section("buildInputs", desc.BuildInputs)

	fmt.Fprintf(&b, "\n%s\n", heading.Render("shellHook"))
	if !desc.HasHook() {
		fmt.Fprintf(&b, "  %s\n", muted.Render("none"))
	} else {
		lines := strings.Count(strings.TrimRight(desc.ShellHook, "\n"), "\n") + 1
		unit := "lines"
		if lines == 1 {
			unit = "line"
		}
		fmt.Fprintf(&b, "  %s %d %s\n", style.Circle, lines, unit)
	}
	return b.String()
}
