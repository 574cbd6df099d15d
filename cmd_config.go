package main

import (
	"fmt"

	"github.com/mthds-ai/mthds/credentials"
)

// runConfig dispatches "mthds config get/set/list" over the credentials
// store.
func runConfig(args []string) (int, error) {
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}

	store, err := credentials.Open()
	if err != nil {
		return 1, err
	}

	switch sub {
	case "list", "":
		entries, err := store.List()
		if err != nil {
			return 1, err
		}
		for _, e := range entries {
			fmt.Printf("%s = %q (%s)\n", e.CLIKey, e.Value, e.Source)
		}
		return 0, nil
	case "get":
		if len(args) != 2 {
			fmt.Println("mthds config get: key not provided")
			return 2, nil
		}
		key, ok := credentials.ResolveKey(args[1])
		if !ok {
			return 1, fmt.Errorf("unknown credential key %q", args[1])
		}
		e, err := store.Get(key)
		if err != nil {
			return 1, err
		}
		fmt.Printf("%s\n", e.Value)
		return 0, nil
	case "set":
		if len(args) != 3 {
			fmt.Println("mthds config set: expected <key> <value>")
			return 2, nil
		}
		key, ok := credentials.ResolveKey(args[1])
		if !ok {
			return 1, fmt.Errorf("unknown credential key %q", args[1])
		}
		if err := store.Set(key, args[2]); err != nil {
			return 1, err
		}
		fmt.Printf("set %s\n", args[1])
		return 0, nil
	default:
		fmt.Printf("mthds config %s: unknown subcommand\n", sub)
		return 2, nil
	}
}
