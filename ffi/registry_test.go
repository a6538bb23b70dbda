// registry_test.go - Unit-Tests fuer die globale Funktions-Registry
package ffi

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestRegisterAndGet(t *testing.T) {
	name := "test.registry.echo"
	t.Cleanup(func() { Remove(name) })

	if err := Register(name, func(args ...any) (any, error) { return args[0], nil }, false); err != nil {
		t.Fatalf("Register: unerwarteter Fehler %v", err)
	}

	f, err := GetGlobalFunc(name)
	if err != nil {
		t.Fatalf("GetGlobalFunc: unerwarteter Fehler %v", err)
	}

	got, err := f("hallo")
	if err != nil || got != "hallo" {
		t.Errorf("f(\"hallo\") = %v, %v; erwartet hallo, nil", got, err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	name := "test.registry.dup"
	t.Cleanup(func() { Remove(name) })

	noop := func(args ...any) (any, error) { return nil, nil }
	if err := Register(name, noop, false); err != nil {
		t.Fatal(err)
	}

	if err := Register(name, noop, false); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Register ohne override: erwartet ErrAlreadyRegistered, bekommen %v", err)
	}

	if err := Register(name, noop, true); err != nil {
		t.Errorf("Register mit override: unerwarteter Fehler %v", err)
	}
}

func TestMustRegisterPanics(t *testing.T) {
	name := "test.registry.must"
	t.Cleanup(func() { Remove(name) })

	noop := func(args ...any) (any, error) { return nil, nil }
	MustRegister(name, noop)

	defer func() {
		if recover() == nil {
			t.Error("MustRegister: erwartet panic bei doppelter Registrierung")
		}
	}()
	MustRegister(name, noop)
}

func TestGetGlobalFuncNotFound(t *testing.T) {
	name := "test.registry.graph_factory.create"
	t.Cleanup(func() { Remove(name) })

	if err := Register(name, func(args ...any) (any, error) { return nil, nil }, false); err != nil {
		t.Fatal(err)
	}

	_, err := GetGlobalFunc("test.registry.graph_factory.creat")
	if !errors.Is(err, ErrFuncNotFound) {
		t.Fatalf("erwartet ErrFuncNotFound, bekommen %v", err)
	}

	if !strings.Contains(err.Error(), "did you mean "+name) {
		t.Errorf("Fehlermeldung sollte Vorschlag enthalten: %v", err)
	}

	_, err = GetGlobalFunc("voellig.anderer.name.ohne.treffer.xyz")
	if !errors.Is(err, ErrFuncNotFound) {
		t.Fatalf("erwartet ErrFuncNotFound, bekommen %v", err)
	}

	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("kein Vorschlag erwartet: %v", err)
	}
}

func TestListGlobalFuncNamesSorted(t *testing.T) {
	names := []string{"test.list.b", "test.list.a", "test.list.c"}
	for _, n := range names {
		if err := Register(n, func(args ...any) (any, error) { return nil, nil }, false); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() {
		for _, n := range names {
			Remove(n)
		}
	})

	got := ListGlobalFuncNames()
	if !slices.IsSorted(got) {
		t.Errorf("ListGlobalFuncNames nicht sortiert: %v", got)
	}

	for _, n := range names {
		if !slices.Contains(got, n) {
			t.Errorf("ListGlobalFuncNames: %s fehlt", n)
		}
	}
}

func TestRegisterInvalid(t *testing.T) {
	if err := Register("", func(args ...any) (any, error) { return nil, nil }, false); err == nil {
		t.Error("Register mit leerem Namen: Fehler erwartet")
	}

	if err := Register("test.registry.nil", nil, false); err == nil {
		t.Error("Register mit nil-Funktion: Fehler erwartet")
	}
}
