package nix

import "time"

// nixHubResponse is the body of a NixHub v2/resolve reply.
type nixHubResponse struct {
	Name    string                 `json:"name"`
	Version string                 `json:"version"`
	Summary string                 `json:"summary"`
	Systems map[string]systemBuild `json:"systems"`
}

// systemBuild is where a resolved version lives for one Nix system.
// The on-disk cache keeps it as NixHub sent it.
type systemBuild struct {
	Installable installable `json:"flake_installable"`
	Outputs     []storePath `json:"outputs"`
}

type installable struct {
	Ref      flakeRef `json:"ref"`
	AttrPath string   `json:"attr_path"`
}

type flakeRef struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Rev   string `json:"rev"`
}

// String renders the reference in flake URL form, defaulting to github:NixOS/nixpkgs.
func (r flakeRef) String() string {
	typ, owner, repo := r.Type, r.Owner, r.Repo
	if typ == "" {
		typ = "github"
	}
	if owner == "" {
		owner = "NixOS"
	}
	if repo == "" {
		repo = "nixpkgs"
	}
	return typ + ":" + owner + "/" + repo + "/" + r.Rev
}

type storePath struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Default bool   `json:"default"`
}

// cacheEntry is one name@version resolution stored under the NixHub cache.
type cacheEntry struct {
	Name      string                 `json:"name"`
	Version   string                 `json:"version"`
	Summary   string                 `json:"summary,omitempty"`
	Systems   map[string]systemBuild `json:"systems"`
	Timestamp time.Time              `json:"timestamp"`
}

// nixDevEnvOutput is the part of `nix print-dev-env --json` that is read.
type nixDevEnvOutput struct {
	Variables map[string]nixVariable `json:"variables"`
}

type nixVariable struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}
