package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

type signatureRow struct {
	Signature string `json:"signature"`
	Method    string `json:"method"`
	Interface string `json:"interface"`
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a redishandles YAML config")
	iface := fs.String("interface", "", "Only signatures declared on this interface")
	query := fs.String("q", "", "Only signatures containing this substring")
	asJSON := fs.Bool("json", false, "Print JSON instead of one signature per line")
	jqExpr := fs.String("jq", "", "Apply a jq expression to the JSON rows (implies -json)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: redishandles list [options]\n\nList the registered signatures in enumeration order.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	e, err := newEnv(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	reg, err := e.buildRegistry(ctx)
	if err != nil {
		return err
	}

	rows := []signatureRow{}
	q := strings.ToLower(*query)
	for _, sig := range reg.Signatures() {
		h, _ := reg.Lookup(sig)
		decl := h.DeclaringType()
		if *iface != "" && !strings.EqualFold(decl.Name(), *iface) && !strings.EqualFold(decl.String(), *iface) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(sig), q) {
			continue
		}
		rows = append(rows, signatureRow{Signature: sig, Method: h.Name(), Interface: decl.String()})
	}

	if *jqExpr != "" {
		return applyJQ(*jqExpr, rows)
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, r := range rows {
		fmt.Fprintln(stdout, r.Signature)
	}
	return nil
}

// applyJQ runs expr over rows and prints one result per line. String results
// are printed raw.
func applyJQ(expr string, rows []signatureRow) error {
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return fmt.Errorf("failed to compile jq expression %q: %w", expr, err)
	}

	// gojq only accepts JSON-shaped values.
	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(b, &input); err != nil {
		return err
	}

	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}
		if s, isStr := v.(string); isStr {
			fmt.Fprintln(stdout, s)
			continue
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(out))
	}
}
