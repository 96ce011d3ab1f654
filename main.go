package main

import (
	"github.com/codehiveofficial/codehive/cmd"
	"github.com/codehiveofficial/codehive/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
