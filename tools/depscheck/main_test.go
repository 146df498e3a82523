package main

import (
	"strings"
	"testing"
)

func TestDecodePackagesReadsConcatenatedObjects(t *testing.T) {
	input := `{"ImportPath":"a","Imports":["b"]}
{"ImportPath":"c"}`
	pkgs, err := decodePackages(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pkgs) != 2 || pkgs[0].ImportPath != "a" || pkgs[0].Imports[0] != "b" || pkgs[1].ImportPath != "c" {
		t.Fatalf("unexpected packages %+v", pkgs)
	}
	if _, err := decodePackages(strings.NewReader("{")); err == nil {
		t.Fatalf("expected truncated input to fail")
	}
}

func TestCheckFlagsClientImportsOfHostPackages(t *testing.T) {
	pkgs := []packageInfo{
		{ImportPath: modulePath + "/internal/replica", Imports: []string{
			modulePath + "/internal/net/proto",
			modulePath + "/internal/sim",
		}},
		{ImportPath: modulePath + "/cmd/client", Imports: []string{
			modulePath + "/internal/net/wsclient",
			modulePath + "/internal/simulator",
		}},
		{ImportPath: modulePath + "/internal/app", Imports: []string{
			modulePath + "/internal/sim",
		}},
	}

	violations := check(pkgs, clientRules)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", violations)
	}
	if violations[0] != modulePath+"/internal/replica -> "+modulePath+"/internal/sim" {
		t.Fatalf("unexpected violation %q", violations[0])
	}
}

func TestCheckFlagsTransitiveHostDependencies(t *testing.T) {
	pkgs := []packageInfo{
		{
			ImportPath: modulePath + "/cmd/client",
			Imports:    []string{modulePath + "/internal/net/ws"},
			Deps: []string{
				modulePath + "/internal/hub",
				modulePath + "/internal/net/proto",
				modulePath + "/internal/net/ws",
				modulePath + "/internal/sim",
			},
		},
		{
			ImportPath: modulePath + "/internal/replica",
			Imports:    []string{modulePath + "/internal/net/proto"},
			Deps:       []string{modulePath + "/internal/cells", modulePath + "/internal/net/proto"},
		},
	}

	violations := check(pkgs, clientRules)
	want := []string{
		modulePath + "/cmd/client -> " + modulePath + "/internal/hub",
		modulePath + "/cmd/client -> " + modulePath + "/internal/net/ws",
		modulePath + "/cmd/client -> " + modulePath + "/internal/sim",
	}
	if strings.Join(violations, "\n") != strings.Join(want, "\n") {
		t.Fatalf("expected violations %v, got %v", want, violations)
	}
}

func TestCheckAllowsClientDialer(t *testing.T) {
	pkgs := []packageInfo{{
		ImportPath: modulePath + "/cmd/client",
		Imports:    []string{modulePath + "/internal/net/wsclient", modulePath + "/internal/replica"},
		Deps: []string{
			modulePath + "/internal/net/proto",
			modulePath + "/internal/net/wsclient",
			modulePath + "/internal/replica",
		},
	}}
	if violations := check(pkgs, clientRules); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}
