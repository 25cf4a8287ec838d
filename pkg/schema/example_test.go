package schema_test

import (
	"fmt"

	"github.com/FaYMan2/terdel/pkg/schema"
)

func ExampleAssemble() {
	ref := func(s string) *string { return &s }
	seq := "nextval('orders_id_seq'::regclass)"

	names := []string{"orders", "customers", "archived"}
	columns := map[string][]schema.RawColumn{
		"orders": {
			{Name: "id", DataType: "bigint", DefaultValue: &seq},
			{Name: "customer_id", DataType: "bigint", IsNullable: true},
		},
		"customers": {
			{Name: "id", DataType: "bigint"},
		},
	}
	constraints := []schema.Constraint{
		{SourceTable: "orders", SourceColumn: "id", Type: schema.ConstraintPrimaryKey},
		{SourceTable: "orders", SourceColumn: "customer_id", Type: schema.ConstraintForeignKey,
			TargetTable: ref("customers"), TargetColumn: ref("id")},
		{SourceTable: "customers", SourceColumn: "id", Type: schema.ConstraintPrimaryKey},
	}

	res := schema.Assemble(names, columns, constraints)
	for _, t := range res.Tables {
		for _, c := range t.Columns {
			fmt.Printf("%s.%s primary=%v identity=%v fk=%v\n", t.Name, c.Name, c.IsPrimary, c.IsIdentity, c.IsForeignKey)
		}
	}
	for _, f := range res.Failed {
		fmt.Println("failed:", f.Table)
	}
	// Output:
	// orders.id primary=true identity=true fk=false
	// orders.customer_id primary=false identity=false fk=true
	// customers.id primary=true identity=false fk=false
	// failed: archived
}
