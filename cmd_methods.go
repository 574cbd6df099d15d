package main

import (
	"fmt"

	"github.com/mthds-ai/mthds/installed"
)

// runMethods dispatches "mthds methods list" and "mthds methods show <name>",
// a first-class CLI surface over the installed-method discovery package.
func runMethods(args []string) (int, error) {
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}

	roots, err := methodRoots()
	if err != nil {
		return 1, err
	}
	methods, err := installed.Discover(roots...)
	if err != nil {
		return 1, err
	}

	switch sub {
	case "list", "":
		if len(methods) == 0 {
			fmt.Println("no installed methods")
			return 0, nil
		}
		for _, m := range methods {
			fmt.Printf("%s\t%s\n", m.Name, m.Path)
		}
		return 0, nil
	case "show":
		if len(args) != 2 {
			fmt.Println("mthds methods show: method name not provided")
			return 2, nil
		}
		m, err := installed.FindByName(methods, args[1])
		if err != nil {
			return 1, err
		}
		fmt.Printf("name: %s\n", m.Name)
		fmt.Printf("path: %s\n", m.Path)
		fmt.Printf("bundle files: %d\n", len(m.MthdsFiles))
		if m.Manifest != nil {
			fmt.Printf("address: %s\n", m.Manifest.Address)
			fmt.Printf("version: %s\n", m.Manifest.Version)
		}
		return 0, nil
	default:
		fmt.Printf("mthds methods %s: unknown subcommand\n", sub)
		return 2, nil
	}
}

// methodRoots returns the project-local methods directory (if inside a
// project) followed by the per-user global one, the search order
// installed.Discover expects.
func methodRoots() ([]string, error) {
	var roots []string
	if root, err := ProjectRoot(); err == nil {
		roots = append(roots, installed.ProjectDir(root))
	}
	global, err := installed.GlobalDir()
	if err != nil {
		return nil, err
	}
	roots = append(roots, global)
	return roots, nil
}
