package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vegasq/tablecat"
	"github.com/vegasq/tablecat/output"
)

var (
	queryFlag   = flag.String("q", "", "SQL query (e.g., \"SELECT * FROM 'file.csv' WHERE age > 30\")")
	formatFlag  = flag.String("f", "table", "Output format: table, json, csv")
	schemaFlag  = flag.Bool("schema", false, "Print the inferred schema of the source and exit")
	explainFlag = flag.Bool("explain", false, "Print the query plan instead of rows")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [source]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Query tabular files (CSV, Parquet, JSON, JSONL, HTML, Markdown, XML) with SQL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -q \"SELECT * FROM 'data.csv' WHERE age > 30\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -q \"SELECT name FROM t LIMIT 5\" data.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -schema \"api.json#json:data.users\"\n", os.Args[0])
	}

	flag.Parse()

	source := flag.Arg(0)

	if *schemaFlag {
		if source == "" {
			fmt.Fprintf(os.Stderr, "Error: -schema requires a source argument\n")
			os.Exit(1)
		}
		schema, err := tablecat.InferSchema(source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, col := range schema.Columns() {
			fmt.Printf("%s: %s\n", col.Name, col.Type)
		}
		return
	}

	if *queryFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: missing -q query\n\n")
		flag.Usage()
		os.Exit(1)
	}

	result, err := tablecat.Execute(*queryFlag, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer result.Close()

	if *explainFlag {
		fmt.Print(result.Explain())
		return
	}

	rows, err := result.ToList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	formatter, err := newFormatter(*formatFlag, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := formatter.Format(result.Schema().Names(), rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	for _, warning := range result.Warnings() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
}

func newFormatter(name string, w io.Writer) (output.Formatter, error) {
	switch name {
	case "table":
		return output.NewTableFormatter(w), nil
	case "json", "jsonl":
		return output.NewJSONFormatter(w), nil
	case "csv":
		return output.NewCSVFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (supported: table, json, csv)", name)
	}
}
