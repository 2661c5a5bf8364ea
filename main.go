package main

import (
	"github.com/lspdock/lspdock/cmd"
	"github.com/lspdock/lspdock/internal/logging"
)

func main() {
	defer logging.RecoverPanic("main", func() {
		logging.ErrorPersist("Application terminated due to unhandled panic")
	})

	cmd.Execute()
}
