// Command depscheck fails when client-side packages depend on host-only ones,
// directly or through another package.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "github.com/moonhappy/biophage-xna-2009-sub001"

type packageInfo struct {
	ImportPath string
	Imports    []string
	// Deps is the transitive closure go list reports.
	Deps []string
}

// rule forbids packages under From from depending on anything under To.
type rule struct {
	From []string
	To   []string
}

var clientRules = []rule{
	{
		From: []string{modulePath + "/internal/replica", modulePath + "/cmd/client"},
		To: []string{
			modulePath + "/internal/sim",
			modulePath + "/internal/ai",
			modulePath + "/internal/hub",
			modulePath + "/internal/app",
			modulePath + "/internal/results",
			modulePath + "/internal/net/ws",
		},
	},
	{
		From: []string{modulePath + "/internal/net/proto"},
		To:   []string{modulePath + "/internal/sim", modulePath + "/internal/hub", modulePath + "/internal/net/ws"},
	},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	pkgs, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
		os.Exit(1)
	}

	if violations := check(pkgs, clientRules); len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden dependencies:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

// decodePackages reads the concatenated JSON objects go list emits.
func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, fmt.Errorf("failed to decode package info: %w", err)
		}
		pkgs = append(pkgs, pkg)
	}
}

func check(pkgs []packageInfo, rules []rule) []string {
	var violations []string
	for _, pkg := range pkgs {
		for _, r := range rules {
			if !underAny(pkg.ImportPath, r.From) {
				continue
			}
			for _, dep := range dependencies(pkg) {
				if underAny(dep, r.To) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, dep))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

// dependencies merges direct imports with the transitive deps, deduplicated.
func dependencies(pkg packageInfo) []string {
	seen := make(map[string]struct{}, len(pkg.Imports)+len(pkg.Deps))
	var out []string
	for _, list := range [][]string{pkg.Imports, pkg.Deps} {
		for _, dep := range list {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			out = append(out, dep)
		}
	}
	return out
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+"/") {
			return true
		}
	}
	return false
}
