package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/broady/rpcontract/gen"
)

type CheckCmd struct {
	SourceFlags `embed:""`
}

func (c *CheckCmd) Run(logger *slog.Logger) error {
	cfg, err := c.load("")
	if err != nil {
		return err
	}

	schema, err := gen.FromConfig(cfg).Logger(logger).Check(context.Background())
	if err != nil {
		return err
	}

	var contexts, requests int
	for _, f := range schema.Factories {
		fmt.Printf("✓ Found factory: %s\n", f.QualifiedName())
		for _, m := range f.ContextMethods() {
			contexts++
			requests += len(m.RequestMethods())
		}
	}
	fmt.Printf("✓ %d factories, %d contexts, %d requests\n", len(schema.Factories), contexts, requests)
	if n := len(schema.Warnings); n > 0 {
		fmt.Printf("! %d warnings\n", n)
	}
	return nil
}
