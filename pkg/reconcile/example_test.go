package reconcile_test

import (
	"context"
	"fmt"

	"github.com/knwanna/universal-reconciliation-service/internal/backend"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

func ExampleEngine_Reconcile() {
	stub := backend.StaticStub(`{"result":[
		{"id":"Q42","name":"Douglas Adams","score":0.93},
		{"id":"Q1","name":"Adams","score":0.41}
	]}`)
	engine, err := reconcile.New(stub)
	if err != nil {
		panic(err)
	}

	result, err := engine.Reconcile(context.Background(), reconcile.Batch{
		"q0": {Text: "Douglas Adams", Limit: 2},
	})
	if err != nil {
		panic(err)
	}
	for _, c := range result.Results["q0"].Candidates {
		fmt.Printf("%s %s %.2f %v\n", c.ID, c.Name, c.Score, c.Match)
	}
	// Output:
	// Q42 Douglas Adams 0.93 true
	// Q1 Adams 0.41 false
}
