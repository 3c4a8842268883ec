package main

import (
	"math/rand"
	"time"

	pairsync "github.com/kelda-inc/pairsync/cmd/pairsync"
)

func main() {
	rand.Seed(time.Now().UnixNano())
	pairsync.Execute()
}
