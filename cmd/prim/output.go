package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/prim/internal/status"
	"github.com/born-ml/prim/internal/validate"
)

func writer(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

type caseOutput struct {
	Case   string           `json:"case"`
	Status string           `json:"status"`
	Result *validate.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// report prints the outcome of a single case and turns failures into exit
// codes: 1 for mismatches and invalid configurations, 2 for unimplemented.
func report(c *cli.Command, name string, res validate.Result, err error) error {
	out := caseOutput{Case: name, Status: validate.CasePassed}
	code := 0
	switch {
	case status.Is(err, status.Unimplemented):
		out.Status, out.Error, code = validate.CaseSkipped, err.Error(), 2
	case err != nil:
		out.Status, out.Error, code = validate.CaseFailed, err.Error(), 1
	case !res.Passed():
		out.Status, out.Error, code = validate.CaseFailed, res.Err().Error(), 1
		out.Result = &res
	default:
		out.Result = &res
	}

	w := writer(c)
	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		_, _ = fmt.Fprintln(w, string(data))
	} else {
		_, _ = fmt.Fprintf(w, "%s: %s", name, out.Status)
		if out.Result != nil {
			_, _ = fmt.Fprintf(w, " checked=%d failed=%d max_error=%g", res.Checked, res.Failed, res.MaxError)
		}
		_, _ = fmt.Fprintln(w)
	}
	if code != 0 {
		return cli.Exit(out.Error, code)
	}
	return nil
}
