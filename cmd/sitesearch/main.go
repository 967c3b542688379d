// Command sitesearch builds the site's search artifacts and queries,
// serves or browses them.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
