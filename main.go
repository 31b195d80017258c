// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/hostpack/hostpack/cmd/hostpack"

func main() {
	cmd.Execute()
}
