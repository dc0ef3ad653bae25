package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goliatone/go-admission/pkg/catalog"
)

func main() {
	lenient := flag.Bool("lenient", false, "map unknown field types to \"any\" instead of reporting them")
	exportOpenAPI := flag.Bool("openapi", false, "print the OpenAPI component schemas of each valid file")
	title := flag.String("title", "Admission form", "OpenAPI document title")
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] paths...\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nLint admission form configurations (JSON or YAML).\n\n"); err != nil {
			panic(err)
		}
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var opts []catalog.ParseOption
	if *lenient {
		opts = append(opts, catalog.WithLenientTypes())
	}

	var violations []violation
	for _, path := range paths {
		cfg, linted, err := lintFile(path, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", path, err)
			os.Exit(1)
		}
		violations = append(violations, linted...)
		if *exportOpenAPI && cfg != nil && len(linted) == 0 {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(catalog.Document(cfg, *title, "")); err != nil {
				fmt.Fprintf(os.Stderr, "export %s: %v\n", path, err)
				os.Exit(1)
			}
		}
	}

	if len(violations) > 0 {
		sort.Slice(violations, func(i, j int) bool {
			if violations[i].file == violations[j].file {
				if violations[i].location == violations[j].location {
					return violations[i].message < violations[j].message
				}
				return violations[i].location < violations[j].location
			}
			return violations[i].file < violations[j].file
		})
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "%s: %s -> %s\n", v.file, v.location, v.message)
		}
		os.Exit(1)
	}
}
