package main

import (
	"incov-backend/cmd/incov/commands"
	"incov-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
