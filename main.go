// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/yae-build/yae/cmd/yae"

func main() {
	cmd.Execute()
}
