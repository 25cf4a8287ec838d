package layout_test

import (
	"fmt"

	"github.com/FaYMan2/terdel/pkg/layout"
	"github.com/FaYMan2/terdel/pkg/schema"
)

func ExampleCompute() {
	customers := "customers"
	id := "id"
	tables := []schema.Table{
		{Name: "orders", Columns: []schema.Column{
			{Name: "id", IsPrimary: true},
			{Name: "customer_id", IsForeignKey: true, TargetTable: &customers, TargetColumn: &id},
		}},
		{Name: "customers", Columns: []schema.Column{
			{Name: "id", IsPrimary: true},
		}},
	}

	res := layout.Compute(tables, layout.DefaultConfig())
	fmt.Println("orders", res.Positions["orders"])
	fmt.Println("customers", res.Positions["customers"])
	// Output:
	// orders {0 0}
	// customers {500 0}
}
