package shell

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"go.trai.ch/devshell/internal/core/domain"
)

// Variables exported into every activated shell.
const (
	EnvActive   = "DEVSHELL_ACTIVE"
	EnvPlatform = "DEVSHELL_PLATFORM"
	EnvDigest   = "DEVSHELL_DIGEST"
	EnvPackages = "DEVSHELL_PACKAGES"
)

// Render writes a POSIX activation script for desc and env to w.
// PATH is prepended to the caller's PATH. The hook runs last.
func (a *Activator) Render(w io.Writer, desc domain.ActivationDescriptor, env []string) error {
	_, err := io.WriteString(w, renderScript(desc, env))
	return err
}

func renderScript(desc domain.ActivationDescriptor, env []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# devshell %s %s\n", desc.Platform.String(), desc.Digest())

	vars := make(map[string]string, len(env))
	for _, entry := range env {
		if k, v, ok := strings.Cut(entry, "="); ok && isName(k) {
			vars[k] = v
		}
	}
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		if k == "PATH" {
			fmt.Fprintf(&b, "export PATH=%s\"${PATH:+%c$PATH}\"\n", quote(vars[k]), os.PathListSeparator)
			continue
		}
		fmt.Fprintf(&b, "export %s=%s\n", k, quote(vars[k]))
	}

	for _, kv := range metadataVars(desc) {
		fmt.Fprintf(&b, "export %s=%s\n", kv[0], quote(kv[1]))
	}

	if desc.HasHook() {
		b.WriteString(desc.ShellHook)
		if !strings.HasSuffix(desc.ShellHook, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func metadataVars(desc domain.ActivationDescriptor) [][2]string {
	return [][2]string{
		{EnvActive, "1"},
		{EnvDigest, desc.Digest()},
		{EnvPackages, strings.Join(domain.PackageIDStrings(desc.PackageIDs()), " ")},
		{EnvPlatform, desc.Platform.String()},
	}
}

// quote wraps s in single quotes for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// isName reports whether s is a valid shell variable name.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
