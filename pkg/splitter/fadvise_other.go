//go:build !linux

package splitter

import "os"

func adviseRandom(*os.File) {}
