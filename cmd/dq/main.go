// Command dq validates datasets against declarative rule suites.
package main

import (
	"os"

	"github.com/jadesonbruno/dataquality/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
