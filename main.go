package main

import (
	"runtime"

	"github.com/nxneeraj/hx-warden/cmd"
)

func main() {
	// Utilize max CPU cores
	runtime.GOMAXPROCS(runtime.NumCPU())

	cmd.Execute()
}
