package main

import (
	"context"
	"fmt"

	"github.com/mthds-ai/mthds/credentials"
	"github.com/mthds-ai/mthds/runner"
)

// runRun dispatches a named pipe to the selected runner. Execution itself
// is a stub: the registry picks the right runner and makes the right
// request or command, but doesn't interpret the result.
func runRun(args []string) (int, error) {
	if len(args) != 1 {
		fmt.Println("mthds run: pipe name not provided")
		return 2, nil
	}

	store, err := credentials.Open()
	if err != nil {
		return 1, err
	}
	r, err := runner.Select(store)
	if err != nil {
		return 1, err
	}

	if err := r.Run(context.Background(), args[0]); err != nil {
		return 1, err
	}
	fmt.Printf("ran %q via %s runner\n", args[0], r.Name())
	return 0, nil
}
