//go:build tools
// +build tools

// Tools tracks tool dependencies invoked through go generate
// (mockgen) so they stay pinned in go.mod.
package chatrelay

import (
	_ "go.uber.org/mock/mockgen"
)
