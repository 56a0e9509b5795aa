// explaindiff audits whether pipeline traces explain differences between
// run outputs.
//
// Usage:
//
//	explaindiff diff <runA> <runB> [--json] [--catalog f.dot] [--coerce count,record_count]
//	explaindiff aggregate <run...> [--pairs all|baseline] [--matrix m.json] [--reports r.json] [--out m.json]
//	explaindiff inspect <run>
//	explaindiff list <runs-dir>
//	explaindiff import <run-dir...> --db audit.db
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

// exitError carries a process exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	err := rootCmd.Execute()
	closeEnv()
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, ee.err)
		}
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(report.ExitArtifactFailed)
}
