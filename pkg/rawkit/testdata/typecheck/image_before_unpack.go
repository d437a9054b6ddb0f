//go:build ignore

package main

import (
	"github.com/user/rawkit/pkg/adapters/memraw"
	"github.com/user/rawkit/pkg/rawkit"
)

func main() {
	lib := rawkit.New(memraw.New())
	fresh, _ := lib.Init()
	s, _ := rawkit.Load(fresh, "shot.raw")
	_, _ = rawkit.MakeMemImage(s)
}
