package nix

import (
	"fmt"
	"regexp"
	"strings"

	"go.trai.ch/devshell/internal/core/domain"
)

// defaultFlake is used for packages that do not name a flake.
const defaultFlake = "nixpkgs"

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_'-]*$`)

// GenerateExpression renders a mkShell expression for desc.
// Flakes are bound in order of first appearance and inputs keep resolution order,
// so the same descriptor always produces the same text.
func GenerateExpression(desc domain.ActivationDescriptor) string {
	defs := make(map[domain.PackageID]domain.PackageDef, len(desc.Packages))
	var flakes []string
	flakeIdx := make(map[string]int)

	for _, p := range desc.Packages {
		defs[p.ID] = p
		flake := flakeOf(p)
		if _, ok := flakeIdx[flake]; !ok {
			flakeIdx[flake] = len(flakes)
			flakes = append(flakes, flake)
		}
	}
	if len(flakes) == 0 {
		flakes = append(flakes, defaultFlake)
	}

	var b strings.Builder
	b.WriteString("let\n")
	fmt.Fprintf(&b, "  system = %s;\n", quote(desc.Platform.String()))
	for i, flake := range flakes {
		fmt.Fprintf(&b, "  flake_%d = builtins.getFlake %s;\n", i, quote(flake))
		fmt.Fprintf(&b, "  pkgs_%d = flake_%d.legacyPackages.${system};\n", i, i)
	}
	b.WriteString("in\n")
	b.WriteString("pkgs_0.mkShell {\n")

	writeInputs := func(name string, ids []domain.PackageID) {
		fmt.Fprintf(&b, "  %s = [\n", name)
		for _, id := range ids {
			def := defs[id]
			fmt.Fprintf(&b, "    pkgs_%d.%s\n", flakeIdx[flakeOf(def)], attrPath(def))
		}
		b.WriteString("  ];\n")
	}
	writeInputs("nativeBuildInputs", desc.NativeBuildInputs)
	writeInputs("buildInputs", desc.BuildInputs)

	if desc.HasHook() {
		fmt.Fprintf(&b, "  shellHook = %s;\n", quote(desc.ShellHook))
	}

	b.WriteString("}\n")
	return b.String()
}

func flakeOf(def domain.PackageDef) string {
	if f := def.Attr(domain.AttrFlake); f != "" {
		return f
	}
	return defaultFlake
}

// attrPath returns the attribute selector for def, quoting segments that are not plain identifiers.
func attrPath(def domain.PackageDef) string {
	path := def.Attr(domain.AttrPath)
	if path == "" {
		path = def.ID.String()
	}

	segments := strings.Split(path, ".")
	for i, s := range segments {
		if !identRe.MatchString(s) {
			segments[i] = quote(s)
		}
	}
	return strings.Join(segments, ".")
}

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"${", `\${`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// quote renders s as a double-quoted Nix string that evaluates to s byte for byte.
func quote(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}
