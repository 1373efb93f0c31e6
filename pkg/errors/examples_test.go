package errors_test

import (
	"fmt"

	"github.com/covid19datasets/sitrep/pkg/errors"
)

// Example demonstrates classifying a pipeline failure.
func Example() {
	err := errors.NewRunError("02/03/2020", "extracted", errors.NewSchemaDriftError(7, 3, nil))

	if errors.IsSchemaDrift(err) {
		fmt.Println("source format changed")
	}

	// Output: source format changed
}

// Example_rowShape demonstrates that row anomalies are not fatal.
func Example_rowShape() {
	err := errors.NewRowShapeError(12, "Bonaire", "width 6, expected 7")

	fmt.Println(errors.IsFatal(err))
	fmt.Println(err)

	// Output:
	// false
	// row 12 (Bonaire): width 6, expected 7
}
