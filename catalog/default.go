package catalog

import "github.com/jadesonbruno/dataquality/rules"

// DefaultSuiteName names the suite built by BuildDefaultSuite.
const DefaultSuiteName = "expectation"

// BuildDefaultSuite adds the employee identifier checks: the "id" column
// must exist, be non-null, unique and within [1, 10], and the table must
// hold 1-100 rows over 1-3 columns.
func BuildDefaultSuite(s *rules.Suite) error {
	return s.AddAll(
		rules.ColumnExists("id").WithNotes("Identifier each employee"),
		rules.ColumnCountBetween(1, 3),
		rules.RowCountBetween(1, 100),
		rules.ValuesNotNull("id"),
		rules.ValuesBetween("id", 1, 10),
		rules.ValuesUnique("id"),
		rules.UniqueValueCountBetween("id", 1, 10),
	)
}
