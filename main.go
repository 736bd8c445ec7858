// Public domain.

package main

import "github.com/kmaclean/collate1d/internal/c1prog"

func main() {
	c1prog.Main()
}
